package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "arrume_backend/internal/http"
	"arrume_backend/platform/config"
	"arrume_backend/platform/httpkit"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"

	"github.com/gin-gonic/gin"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "public") })
	ctx.Operator.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "operator") })
}

func newApp(health apphttp.HealthChecker) *apphttp.App {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	m.LeadSubmitted("accepted")
	return &apphttp.App{
		Config: &config.Config{
			CORSOrigins:            []string{"http://localhost:4200"},
			MetricsPath:            "/metrics",
			OperatorAPIKey:         "ops-key",
			LeadRateLimitPerMinute: 10,
		},
		Logger:  logger.Discard(),
		Health:  health,
		Metrics: m,
		Modules: []apphttp.Module{echoModule{}},
	}
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	engine := New(newApp(pingFunc(func(context.Context) error { return nil })))
	if rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	engine = New(newApp(pingFunc(func(context.Context) error { return errors.New("down") })))
	if rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := New(newApp(nil))
	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "arrume_leads_submitted_total") {
		t.Fatalf("unexpected metrics response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestModuleRoutesAndOperatorGuard(t *testing.T) {
	engine := New(newApp(nil))

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "public" {
		t.Fatalf("unexpected public response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatalf("expected request id header")
	}

	if rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/ops/echo", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without operator key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ops/echo", nil)
	req.Header.Set(httpkit.HeaderOperatorKey, "ops-key")
	if rec := serve(engine, req); rec.Code != http.StatusOK || rec.Body.String() != "operator" {
		t.Fatalf("unexpected operator response %d %q", rec.Code, rec.Body.String())
	}
}
