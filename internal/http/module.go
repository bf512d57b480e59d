package http

import (
	"arrume_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Operator is /api/v1/ops, guarded by the operator API key.
	Operator *gin.RouterGroup
	// LeadRateLimiter throttles public lead submissions per client IP.
	LeadRateLimiter *httpkit.IPRateLimiter
}
