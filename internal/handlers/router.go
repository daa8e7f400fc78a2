package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malemalice/karang-sqlite-http/internal/metrics"
	"github.com/malemalice/karang-sqlite-http/internal/middleware"
)

// ServiceName and ServiceVersion identify the service in the root document.
const (
	ServiceName    = "SQLite HTTP Query API"
	ServiceVersion = "1.0.0"
)

// NewRouter assembles the Gin engine with all routes registered.
func NewRouter(queryHandler *QueryHandler, healthHandler *HealthHandler, corsOrigin string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(corsOrigin))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": ServiceName,
			"version": ServiceVersion,
			"endpoints": gin.H{
				"/query":   "Query the database using POST with JSON body",
				"/health":  "Health check endpoint",
				"/metrics": "Prometheus metrics",
			},
		})
	})

	router.POST("/query", queryHandler.Query)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
