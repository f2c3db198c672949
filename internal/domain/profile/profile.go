package profile

import (
	"context"
	"time"
)

type About struct {
	Title        string   `json:"title,omitempty" bson:"title,omitempty"`
	Paragraphs   []string `json:"paragraphs,omitempty" bson:"paragraphs,omitempty"`
	ResumeURL    string   `json:"resumeUrl,omitempty" bson:"resumeUrl,omitempty"`
	ContactIntro string   `json:"contactIntro,omitempty" bson:"contactIntro,omitempty"`
}

type Skill struct {
	Name     string `json:"name" bson:"name" binding:"required"`
	Level    int    `json:"level" bson:"level" binding:"min=0,max=100"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
}

type Project struct {
	ID          int      `json:"id" bson:"id"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Image       string   `json:"image,omitempty" bson:"image,omitempty"`
	Tags        []string `json:"tags,omitempty" bson:"tags,omitempty"`
	DemoURL     string   `json:"demoUrl,omitempty" bson:"demoUrl,omitempty"`
	GithubURL   string   `json:"githubUrl,omitempty" bson:"githubUrl,omitempty"`
}

type Certification struct {
	ID            int    `json:"id" bson:"id"`
	Title         string `json:"title" bson:"title"`
	Issuer        string `json:"issuer,omitempty" bson:"issuer,omitempty"`
	IssueDate     string `json:"issueDate,omitempty" bson:"issueDate,omitempty"`
	CredentialID  string `json:"credentialId,omitempty" bson:"credentialId,omitempty"`
	CredentialURL string `json:"credentialUrl,omitempty" bson:"credentialUrl,omitempty"`
	BadgeImage    string `json:"badgeImage,omitempty" bson:"badgeImage,omitempty"`
}

type Experience struct {
	Role     string   `json:"role" bson:"role"`
	Company  string   `json:"company,omitempty" bson:"company,omitempty"`
	Period   string   `json:"period,omitempty" bson:"period,omitempty"`
	Location string   `json:"location,omitempty" bson:"location,omitempty"`
	Bullets  []string `json:"bullets,omitempty" bson:"bullets,omitempty"`
}

// Document is the single logical portfolio record. Empty fields are omitted
// from JSON so that clients can tell "absent" from "set".
type Document struct {
	ID        string     `json:"_id,omitempty" bson:"-"`
	CreatedAt *time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`

	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	BrandName string `json:"brandName,omitempty" bson:"brandName,omitempty"`
	Role      string `json:"role,omitempty" bson:"role,omitempty"`
	SiteName  string `json:"siteName,omitempty" bson:"siteName,omitempty"`
	SiteURL   string `json:"siteUrl,omitempty" bson:"siteUrl,omitempty"`
	About     *About `json:"about,omitempty" bson:"about,omitempty"`

	Location string            `json:"location,omitempty" bson:"location,omitempty"`
	Email    string            `json:"email,omitempty" bson:"email,omitempty"`
	Phone    string            `json:"phone,omitempty" bson:"phone,omitempty"`
	Socials  map[string]string `json:"socials,omitempty" bson:"socials,omitempty"`

	Skills         []Skill         `json:"skills,omitempty" bson:"skills,omitempty" binding:"omitempty,dive"`
	Projects       []Project       `json:"projects,omitempty" bson:"projects,omitempty"`
	Certifications []Certification `json:"certifications,omitempty" bson:"certifications,omitempty"`
	Experience     []Experience    `json:"experience,omitempty" bson:"experience,omitempty"`
}

// Stamp sets both timestamps for a freshly inserted document.
func (d *Document) Stamp(now time.Time) {
	now = now.UTC()
	d.CreatedAt = &now
	d.UpdatedAt = &now
}

// Repository holds the profile documents. GetCurrent returns (nil, nil) when
// no document exists.
type Repository interface {
	GetCurrent(ctx context.Context) (*Document, error)
	Replace(ctx context.Context, doc *Document, preserveExisting bool) (*Document, error)
}

// Cache keeps a copy of the current document. Implementations must treat
// their own failures as misses.
//
// Writers that just replaced the document use Set. Readers filling a miss use
// SetIfAbsent so a slow read cannot overwrite a newer write.
type Cache interface {
	Get(ctx context.Context) (*Document, bool)
	Set(ctx context.Context, doc *Document)
	SetIfAbsent(ctx context.Context, doc *Document)
	Invalidate(ctx context.Context)
}
