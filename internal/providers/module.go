// Package providers provides the provider matching bounded context module.
package providers

import (
	apphttp "arrume_backend/internal/http"
	"arrume_backend/internal/providers/handler"
	"arrume_backend/internal/providers/service"
	"arrume_backend/platform/config"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/validator"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the matcher around the given candidate source.
func NewModule(reader service.CandidateReader, cfg config.MatcherConfig, val *validator.Validator, m *metrics.Metrics, log *logger.Logger) *Module {
	svc := service.New(reader, cfg.GetProviderLimit(), cfg.GetProviderCategories(), m, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "providers"
}

// Service returns the matcher for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the operator search preview.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Operator.Group("/providers"))
}

var _ apphttp.Module = (*Module)(nil)
