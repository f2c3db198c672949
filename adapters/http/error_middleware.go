package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := apperror.ToHTTPStatus(err)

		l := log.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path), zap.Int("status", status))
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("Request failed", err)
		case errors.Is(err, apperror.ErrNotFound):
			l.Debug("Resource not found", zap.String("error", err.Error()))
		default:
			l.Warn("Request rejected", zap.String("error", err.Error()))
		}

		if c.Writer.Written() {
			return
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.AbortWithStatusJSON(status, appErr.ToJSON())
			return
		}
		c.AbortWithStatusJSON(status, gin.H{"error": apperror.ErrInternal.Error(), "message": "An internal server error occurred"})
	}
}
