// Package router wires the gin engine for the serving API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/infrastructure/config"
	"github.com/phc/analytics-backend/internal/infrastructure/logger"
	"github.com/phc/analytics-backend/internal/interfaces/http/handler"
	"github.com/phc/analytics-backend/internal/interfaces/http/middleware"
)

// Handlers bundles the handlers mounted by the router.
type Handlers struct {
	Analytics *handler.AnalyticsHandler
	Health    *handler.HealthHandler
}

// New builds the gin engine with the serving routes and common middleware.
func New(cfg *config.Config, log *zap.Logger, handlers Handlers) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(),
	)

	engine.GET("/health", handlers.Health.Health)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/tables/:name", handlers.Analytics.GetTable)
		v1.GET("/kpis", handlers.Analytics.GetKPIs)
		v1.GET("/revenue/monthly", handlers.Analytics.GetMonthlyRevenue)
	}

	return engine, nil
}
