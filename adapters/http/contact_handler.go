package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	contactUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/contact"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type ContactHandler struct {
	sendContactUC *contactUC.SendContactUseCase
	logger        logger.Logger
}

func NewContactHandler(uc *contactUC.SendContactUseCase, log logger.Logger) *ContactHandler {
	return &ContactHandler{sendContactUC: uc, logger: log}
}

func (h *ContactHandler) SendContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid contact form", err))
		return
	}

	output, err := h.sendContactUC.Execute(c.Request.Context(), contactUC.SendContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, output)
}
