package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	resumeUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
	"github.com/khoahotran/portfolio-delivery/pkg/metrics"
)

const resumeFormField = "file"

var filenameSanitizer = strings.NewReplacer(`"`, "", "\r", "", "\n", "", `\`, "")

type ResumeHandler struct {
	uploadResumeUC   *resumeUC.UploadResumeUseCase
	downloadResumeUC *resumeUC.DownloadResumeUseCase
	logger           logger.Logger
}

func NewResumeHandler(uploadUC *resumeUC.UploadResumeUseCase, downloadUC *resumeUC.DownloadResumeUseCase, log logger.Logger) *ResumeHandler {
	return &ResumeHandler{
		uploadResumeUC:   uploadUC,
		downloadResumeUC: downloadUC,
		logger:           log,
	}
}

// UploadResume streams the "file" part of a multipart body into the store
// without buffering it.
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.Error(apperror.NewInvalidInput("No file provided", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.Error(apperror.NewInvalidInput("malformed multipart body", err))
			return
		}
		if part.FormName() != resumeFormField || part.FileName() == "" {
			part.Close()
			continue
		}

		output, err := h.uploadResumeUC.Execute(c.Request.Context(), resumeUC.UploadResumeInput{
			File:        part,
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
		})
		part.Close()
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, output)
		return
	}

	c.Error(apperror.NewInvalidInput("No file provided", nil))
}

func (h *ResumeHandler) DownloadResume(c *gin.Context) {
	h.serve(c, resumeUC.DownloadResumeInput{ID: c.Param("id")})
}

func (h *ResumeHandler) DownloadLatestResume(c *gin.Context) {
	h.serve(c, resumeUC.DownloadResumeInput{})
}

func (h *ResumeHandler) serve(c *gin.Context, input resumeUC.DownloadResumeInput) {
	output, err := h.downloadResumeUC.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	defer output.Body.Close()

	f := output.File
	disposition := fmt.Sprintf(`attachment; filename="%s"`, filenameSanitizer.Replace(f.DownloadName()))
	c.DataFromReader(http.StatusOK, f.Length, f.DownloadContentType(), output.Body, map[string]string{
		"Content-Disposition": disposition,
	})
	metrics.ResumeServed(f.Length)
}
