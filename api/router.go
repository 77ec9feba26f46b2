package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/unfurl/api/handler"
	"github.com/use-agent/unfurl/config"
	"github.com/use-agent/unfurl/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
func NewRouter(sc *scraper.Scraper, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	api := r.Group("/api")

	api.GET("/health", handler.Health(sc, startTime))
	api.POST("/scrape", handler.Preview(sc))

	return r
}
