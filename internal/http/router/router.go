// Package router builds the gin engine from the composed application.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "arrume_backend/internal/http"
	"arrume_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// New builds the engine: global middleware, health and metrics endpoints,
// then every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.CORS(app.Config))

	engine.GET("/api/health", healthHandler(app.Health))
	if path := app.Config.GetMetricsPath(); path != "" {
		engine.GET(path, gin.WrapH(app.Metrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	operator := v1.Group("/ops")
	operator.Use(httpkit.OperatorOnly(app.Config))

	rc := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Operator:        operator,
		LeadRateLimiter: httpkit.NewPerMinuteLimiter(app.Config.GetLeadRateLimitPerMinute(), app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func healthHandler(health apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
