// Package postalcode resolves Brazilian postal codes (CEP) to an address
// through public lookup services, with an optional Redis cache in front.
package postalcode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"arrume_backend/platform/config"
	"arrume_backend/platform/fallback"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/sanitize"
)

// Address is the part of a postal address the matcher needs.
type Address struct {
	City         string `json:"city"`
	Region       string `json:"region"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
}

// Empty reports whether the address has no city.
func (a Address) Empty() bool {
	return strings.TrimSpace(a.City) == ""
}

// Placeholder is the city stand-in used when a CEP cannot be resolved.
func Placeholder(cep string) string {
	return "CEP-" + cep
}

// Lookup is one lookup service.
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, cep string) (Address, error)
}

// Resolver tries each lookup in order, each bounded by its own timeout.
type Resolver struct {
	lookups []Lookup
	timeout time.Duration
	cache   Cache
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(timeout time.Duration, cache Cache, m *metrics.Metrics, log *logger.Logger, lookups ...Lookup) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{lookups: lookups, timeout: timeout, cache: cache, metrics: m, log: log}
}

// NewFromConfig builds the ViaCEP then BrasilAPI resolver.
func NewFromConfig(cfg config.PostalLookupConfig, cache Cache, m *metrics.Metrics, log *logger.Logger) *Resolver {
	client := &http.Client{}
	return NewResolver(cfg.GetPostalLookupTimeout(), cache, m, log,
		NewViaCEP(cfg.GetViaCEPBaseURL(), client),
		NewBrasilAPI(cfg.GetBrasilAPIBaseURL(), client),
	)
}

// Resolve returns the address for cep and whether it was found. Failures of
// the cache or the lookup services are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, cep string) (Address, bool) {
	cep = sanitize.PostalCode(cep)
	if !sanitize.IsPostalCode(cep) {
		return Address{}, false
	}

	if r.cache != nil {
		addr, ok, err := r.cache.Get(ctx, cep)
		if err != nil {
			r.log.WithContext(ctx).Warn("postal code cache read failed", "cep", cep, "error", err)
		} else if ok {
			return addr, true
		}
	}

	chain := fallback.New[Address]("postal_code_lookup", Address.Empty, r.log)
	for _, l := range r.lookups {
		chain.ThenWithin(l.Name(), r.timeout, r.observe(l, cep))
	}
	result := chain.Run(ctx, Address{})
	if result.Step == "" {
		return Address{}, false
	}

	addr := Address{
		City:         strings.TrimSpace(result.Value.City),
		Region:       sanitize.Region(result.Value.Region),
		Neighborhood: strings.TrimSpace(result.Value.Neighborhood),
		Street:       strings.TrimSpace(result.Value.Street),
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, cep, addr); err != nil {
			r.log.WithContext(ctx).Warn("postal code cache write failed", "cep", cep, "error", err)
		}
	}
	return addr, true
}

func (r *Resolver) observe(l Lookup, cep string) fallback.Attempt[Address] {
	return func(ctx context.Context) (Address, error) {
		started := time.Now()
		addr, err := l.Lookup(ctx, cep)
		r.metrics.ExternalCall(l.Name(), started, err)
		return addr, err
	}
}
