package http

import (
	"github.com/gin-gonic/gin"

	"github.com/halalscan/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.Advisor.MaxImageBytes > 0 {
		router.MaxMultipartMemory = cfg.Advisor.MaxImageBytes + 1<<20
	}

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(handler.logger))
	router.Use(LoggerMiddleware(handler.logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(LanguageMiddleware())

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(NewRateLimiter(cfg.RateLimit.PerIP).Middleware())
	}
	{
		scan := v1.Group("/scan")
		{
			scan.POST("/barcode", handler.ScanBarcode)
			scan.POST("/text", handler.ScanText)
			scan.POST("/image", handler.ScanImage)
		}

		v1.POST("/health/analyze", handler.AnalyzeHealth)
		v1.GET("/products/:barcode", handler.GetProduct)
		v1.POST("/ingredients/check", handler.CheckIngredients)
	}

	return router
}
