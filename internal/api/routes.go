package api

import (
	"github.com/JustJay7/court-registry/internal/cache"
	"github.com/JustJay7/court-registry/internal/config"
	"github.com/JustJay7/court-registry/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cache cache.Cache, logger *logger.Logger, cfg *config.Config) {
	h := NewHandlers(db, cache, logger, cfg)

	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/cache/stats", h.CacheStats)

		api.GET("/cases", h.ListCasesAPI)

		// Reports
		api.GET("/report", h.GetReportAPI)
		api.POST("/report", h.ExportReportAPI)

		// Imports
		api.POST("/import", h.ImportFileAPI)
		api.POST("/import/rows", h.ImportRowsAPI)
	}
}
