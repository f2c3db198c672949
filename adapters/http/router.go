package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoahotran/portfolio-delivery/pkg/logger"
	"github.com/khoahotran/portfolio-delivery/pkg/metrics"
)

type RouterConfig struct {
	CORSOrigins []string
	SeedToken   string

	ProfileHandler *ProfileHandler
	ResumeHandler  *ResumeHandler
	ContactHandler *ContactHandler
	HealthHandler  *HealthHandler
	Logger         logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(metrics.Middleware())
	router.Use(ErrorMiddleware(cfg.Logger))

	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "API running") })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", cfg.HealthHandler.Health)
		api.GET("/profile", cfg.ProfileHandler.GetProfile)

		api.POST("/resume", cfg.ResumeHandler.UploadResume)
		api.GET("/resume", cfg.ResumeHandler.DownloadLatestResume)
		api.GET("/resume/:id", cfg.ResumeHandler.DownloadResume)

		api.POST("/contact", cfg.ContactHandler.SendContact)

		seed := api.Group("/seed")
		seed.Use(SeedTokenMiddleware(cfg.SeedToken, cfg.Logger))
		{
			seed.POST("", cfg.ProfileHandler.SeedProfile)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", HeaderSeedToken},
		ExposeHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
