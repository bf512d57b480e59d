// Package linkshortener shortens deep links through a chain of public
// shortener services. Shortening never fails: when every provider fails the
// original URL is used.
package linkshortener

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arrume_backend/platform/config"
	"arrume_backend/platform/fallback"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/sanitize"
)

// Provider is one shortening service.
type Provider interface {
	Name() string
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Chain tries providers in order, each bounded by its own timeout.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// NewChain creates a chain over providers. timeout bounds each provider call.
func NewChain(timeout time.Duration, m *metrics.Metrics, log *logger.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, timeout: timeout, metrics: m, log: log}
}

// NewFromConfig builds the TinyURL then is.gd chain.
func NewFromConfig(cfg config.ShortenerConfig, m *metrics.Metrics, log *logger.Logger) *Chain {
	client := &http.Client{}
	return NewChain(cfg.GetShortenerTimeout(), m, log,
		NewTinyURL(cfg.GetTinyURLBaseURL(), client),
		NewIsGd(cfg.GetIsGdBaseURL(), client),
	)
}

// Shorten returns the first provider's short URL, or longURL unchanged.
func (c *Chain) Shorten(ctx context.Context, longURL string) string {
	if strings.TrimSpace(longURL) == "" || c == nil {
		return longURL
	}

	chain := fallback.New[string]("link_shortener", func(s string) bool { return s == "" }, c.log)
	for _, p := range c.providers {
		chain.ThenWithin(p.Name(), c.timeout, c.observe(p, longURL))
	}
	return chain.Run(ctx, longURL).Value
}

func (c *Chain) observe(p Provider, longURL string) fallback.Attempt[string] {
	return func(ctx context.Context) (string, error) {
		started := time.Now()
		short, err := p.Shorten(ctx, longURL)
		c.metrics.ExternalCall(p.Name(), started, err)
		return short, err
	}
}

// WhatsAppLink builds a wa.me click-to-chat link with a prefilled message.
// An empty phone yields "".
func WhatsAppLink(phone, text string) string {
	digits := sanitize.Digits(phone)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if text != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	}
	return link
}
