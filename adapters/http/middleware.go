package http

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const HeaderSeedToken = "x-seed-token"

// SeedTokenMiddleware admits requests whose x-seed-token header equals token.
// An empty token rejects every request.
func SeedTokenMiddleware(token string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(HeaderSeedToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			log.Warn("Rejected seed request", zap.String("client_ip", c.ClientIP()), zap.Bool("token_configured", token != ""))
			c.Error(apperror.NewUnauthorized("missing or invalid seed token", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
