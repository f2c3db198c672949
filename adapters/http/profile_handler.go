package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	profileUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/profile"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type ProfileHandler struct {
	getProfileUC  *profileUC.GetProfileUseCase
	seedProfileUC *profileUC.SeedProfileUseCase
	logger        logger.Logger
}

func NewProfileHandler(getUC *profileUC.GetProfileUseCase, seedUC *profileUC.SeedProfileUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		getProfileUC:  getUC,
		seedProfileUC: seedUC,
		logger:        log,
	}
}

// GetProfile answers 204 both for an empty store and for unreachable storage
// so the client keeps its fallback without showing an error.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	output, err := h.getProfileUC.Execute(c.Request.Context())
	if err != nil {
		if errors.Is(err, apperror.ErrUnavailable) {
			h.logger.Warn("Profile storage unavailable, answering 204", zap.String("error", err.Error()))
			c.Status(http.StatusNoContent)
			return
		}
		c.Error(err)
		return
	}
	if output.Profile == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, output.Profile)
}

func (h *ProfileHandler) SeedProfile(c *gin.Context) {
	preserve := false
	if raw := c.Query("preserve"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.Error(apperror.NewInvalidInput("'preserve' must be a boolean", err))
			return
		}
		preserve = v
	}

	var doc profile.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile seed", err))
		return
	}

	output, err := h.seedProfileUC.Execute(c.Request.Context(), profileUC.SeedProfileInput{
		Document:         &doc,
		PreserveExisting: preserve,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, output.Profile)
}
