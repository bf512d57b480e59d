// Package leads provides the lead intake bounded context module.
package leads

import (
	apphttp "arrume_backend/internal/http"
	"arrume_backend/internal/leads/handler"
	"arrume_backend/internal/leads/repository"
	"arrume_backend/internal/leads/service"
	"arrume_backend/internal/notification"
	"arrume_backend/platform/config"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// Deps groups the collaborators the intake pipeline needs.
type Deps struct {
	Store      repository.Store
	Resolver   service.AddressResolver
	Matcher    service.Matcher
	Dispatcher service.Dispatcher
}

// NewModule wires the lead intake pipeline.
func NewModule(deps Deps, cfg config.BrandingConfig, val *validator.Validator, m *metrics.Metrics, log *logger.Logger) *Module {
	composer := notification.NewComposer(cfg.GetBrandName(), cfg.GetPlatformName())
	svc := service.New(deps.Store, deps.Resolver, deps.Matcher, deps.Dispatcher, composer, val, m, log)
	return &Module{handler: handler.New(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts POST /api/v1/leads behind the per-IP limiter and the
// operator lookup under /api/v1/ops/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var limit gin.HandlerFunc
	if ctx.LeadRateLimiter != nil {
		limit = ctx.LeadRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"), limit)
	m.handler.RegisterOperatorRoutes(ctx.Operator.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
