package profilesync

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot is a profile document kept as raw top-level fields so that fields
// unknown to this package survive a merge untouched.
type Snapshot map[string]json.RawMessage

// ParseSnapshot decodes a JSON object. Anything other than an object is
// rejected.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("profile is not a JSON object: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("profile is not a JSON object")
	}
	return s, nil
}

// Merge overlays remote on fallback field by field. Every top-level field
// present in remote wins, including an explicit null. Neither input is
// modified.
func Merge(fallback, remote Snapshot) Snapshot {
	out := make(Snapshot, len(fallback)+len(remote))
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range remote {
		out[k] = v
	}
	return out
}

// Decode unmarshals the snapshot into v, typically a *profile.Document.
func (s Snapshot) Decode(v any) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ResumeURL returns about.resumeUrl, or <apiBase>/api/resume when it is
// missing, empty or "#".
func ResumeURL(s Snapshot, apiBase string) string {
	var about struct {
		ResumeURL string `json:"resumeUrl"`
	}
	if raw, ok := s["about"]; ok {
		_ = json.Unmarshal(raw, &about)
	}
	u := strings.TrimSpace(about.ResumeURL)
	if u == "" || u == "#" {
		return strings.TrimRight(apiBase, "/") + "/api/resume"
	}
	return u
}
