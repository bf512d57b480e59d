// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// BackendPostgres selects the PostgreSQL implementation of a store.
	BackendPostgres = "postgres"
	// BackendSQLite selects the embedded SQLite lead store.
	BackendSQLite = "sqlite"
	// BackendFixture selects the YAML candidate fixture.
	BackendFixture = "fixture"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// MetricsConfig provides settings for the Prometheus endpoint.
type MetricsConfig interface {
	GetMetricsPath() string
}

// OperatorConfig protects operator-only endpoints.
type OperatorConfig interface {
	GetOperatorAPIKey() string
}

// LeadStoreConfig selects where submitted leads are persisted.
type LeadStoreConfig interface {
	GetLeadStore() string
	GetSQLitePath() string
	GetLeadRateLimitPerMinute() int
}

// MatcherConfig provides settings for provider matching.
type MatcherConfig interface {
	GetProviderSource() string
	GetProviderFixturePath() string
	GetProviderLimit() int
	GetProviderCategories() []string
}

// WhatsAppConfig provides settings for the Z-API transport.
type WhatsAppConfig interface {
	GetZAPIURLBase() string
	GetZAPIInstance() string
	GetZAPIToken() string
	GetZAPIMessageEndpoint() string
	GetZAPIClientToken() string
	GetZAPISenderPhone() string
	GetZAPIUseFake() bool
	GetZAPITimeout() time.Duration
}

// ShortenerConfig provides settings for the link shortener chain.
type ShortenerConfig interface {
	GetShortenerTimeout() time.Duration
	GetTinyURLBaseURL() string
	GetIsGdBaseURL() string
}

// PostalLookupConfig provides settings for CEP address lookups.
type PostalLookupConfig interface {
	GetPostalLookupTimeout() time.Duration
	GetViaCEPBaseURL() string
	GetBrasilAPIBaseURL() string
}

// CacheConfig provides settings for the Redis cache.
type CacheConfig interface {
	GetRedisURL() string
	GetPostalCacheTTL() time.Duration
}

// BrandingConfig provides names rendered into outgoing messages.
type BrandingConfig interface {
	GetBrandName() string
	GetPlatformName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	MetricsPath            string
	OperatorAPIKey         string
	LeadStore              string
	SQLitePath             string
	LeadRateLimitPerMinute int
	ProviderSource         string
	ProviderFixturePath    string
	ProviderLimit          int
	ProviderCategories     []string
	ZAPIURLBase            string
	ZAPIInstance           string
	ZAPIToken              string
	ZAPIMessageEndpoint    string
	ZAPIClientToken        string
	ZAPISenderPhone        string
	ZAPIUseFake            bool
	ZAPITimeout            time.Duration
	ShortenerTimeout       time.Duration
	TinyURLBaseURL         string
	IsGdBaseURL            string
	PostalLookupTimeout    time.Duration
	ViaCEPBaseURL          string
	BrasilAPIBaseURL       string
	RedisURL               string
	PostalCacheTTL         time.Duration
	BrandName              string
	PlatformName           string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// MetricsConfig implementation
func (c *Config) GetMetricsPath() string { return c.MetricsPath }

// OperatorConfig implementation
func (c *Config) GetOperatorAPIKey() string { return c.OperatorAPIKey }

// LeadStoreConfig implementation
func (c *Config) GetLeadStore() string            { return c.LeadStore }
func (c *Config) GetSQLitePath() string           { return c.SQLitePath }
func (c *Config) GetLeadRateLimitPerMinute() int { return c.LeadRateLimitPerMinute }

// MatcherConfig implementation
func (c *Config) GetProviderSource() string       { return c.ProviderSource }
func (c *Config) GetProviderFixturePath() string  { return c.ProviderFixturePath }
func (c *Config) GetProviderLimit() int           { return c.ProviderLimit }
func (c *Config) GetProviderCategories() []string { return c.ProviderCategories }

// WhatsAppConfig implementation
func (c *Config) GetZAPIURLBase() string         { return c.ZAPIURLBase }
func (c *Config) GetZAPIInstance() string        { return c.ZAPIInstance }
func (c *Config) GetZAPIToken() string           { return c.ZAPIToken }
func (c *Config) GetZAPIMessageEndpoint() string { return c.ZAPIMessageEndpoint }
func (c *Config) GetZAPIClientToken() string     { return c.ZAPIClientToken }
func (c *Config) GetZAPISenderPhone() string     { return c.ZAPISenderPhone }
func (c *Config) GetZAPIUseFake() bool           { return c.ZAPIUseFake }
func (c *Config) GetZAPITimeout() time.Duration  { return c.ZAPITimeout }

// ShortenerConfig implementation
func (c *Config) GetShortenerTimeout() time.Duration { return c.ShortenerTimeout }
func (c *Config) GetTinyURLBaseURL() string          { return c.TinyURLBaseURL }
func (c *Config) GetIsGdBaseURL() string             { return c.IsGdBaseURL }

// PostalLookupConfig implementation
func (c *Config) GetPostalLookupTimeout() time.Duration { return c.PostalLookupTimeout }
func (c *Config) GetViaCEPBaseURL() string              { return c.ViaCEPBaseURL }
func (c *Config) GetBrasilAPIBaseURL() string           { return c.BrasilAPIBaseURL }

// CacheConfig implementation
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetPostalCacheTTL() time.Duration { return c.PostalCacheTTL }

// BrandingConfig implementation
func (c *Config) GetBrandName() string    { return c.BrandName }
func (c *Config) GetPlatformName() string { return c.PlatformName }

// UsesPostgres reports whether any configured backend needs DATABASE_URL.
func (c *Config) UsesPostgres() bool {
	return c.LeadStore == BackendPostgres || c.ProviderSource == BackendPostgres
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		MetricsPath:            getEnv("METRICS_PATH", "/metrics"),
		OperatorAPIKey:         getEnv("OPERATOR_API_KEY", ""),
		LeadStore:              strings.ToLower(getEnv("LEAD_STORE", BackendPostgres)),
		SQLitePath:             getEnv("SQLITE_PATH", "arrume.db"),
		LeadRateLimitPerMinute: mustInt(getEnv("LEAD_RATE_LIMIT_PER_MIN", "10")),
		ProviderSource:         strings.ToLower(getEnv("PROVIDER_SOURCE", BackendPostgres)),
		ProviderFixturePath:    getEnv("PROVIDER_FIXTURE_PATH", ""),
		ProviderLimit:          atLeastOne(mustInt(getEnv("PROVIDER_LIMIT", "3"))),
		ProviderCategories:     splitCSV(getEnv("PROVIDER_CATEGORIES", "")),
		ZAPIURLBase:            getEnv("ZAPI_URL_BASE", "https://api.z-api.io"),
		ZAPIInstance:           getEnv("ZAPI_INSTANCE", ""),
		ZAPIToken:              getEnv("ZAPI_TOKEN", ""),
		ZAPIMessageEndpoint:    getEnv("ZAPI_MESSAGE_ENDPOINT", "send-text"),
		ZAPIClientToken:        getEnv("ZAPI_CLIENT_TOKEN", ""),
		ZAPISenderPhone:        getEnv("ZAPI_SENDER_PHONE", ""),
		ZAPIUseFake:            strings.EqualFold(getEnv("ZAPI_USE_FAKE", "false"), "true"),
		ZAPITimeout:            mustDuration(getEnv("ZAPI_TIMEOUT", "30s")),
		ShortenerTimeout:       mustDuration(getEnv("SHORTENER_TIMEOUT", "5s")),
		TinyURLBaseURL:         getEnv("TINYURL_BASE_URL", "https://api.tinyurl.com"),
		IsGdBaseURL:            getEnv("ISGD_BASE_URL", "https://is.gd"),
		PostalLookupTimeout:    mustDuration(getEnv("POSTAL_LOOKUP_TIMEOUT", "5s")),
		ViaCEPBaseURL:          getEnv("VIACEP_BASE_URL", "https://viacep.com.br"),
		BrasilAPIBaseURL:       getEnv("BRASILAPI_BASE_URL", "https://brasilapi.com.br"),
		RedisURL:               getEnv("REDIS_URL", ""),
		PostalCacheTTL:         mustDuration(getEnv("POSTAL_CACHE_TTL", "24h")),
		BrandName:              getEnv("BRAND_NAME", "JC Decor"),
		PlatformName:           getEnv("PLATFORM_NAME", "ARRUME"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LeadStore {
	case BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("LEAD_STORE must be %q or %q", BackendPostgres, BackendSQLite)
	}
	switch c.ProviderSource {
	case BackendPostgres, BackendFixture:
	default:
		return fmt.Errorf("PROVIDER_SOURCE must be %q or %q", BackendPostgres, BackendFixture)
	}
	if c.UsesPostgres() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ProviderSource == BackendFixture && c.ProviderFixturePath == "" {
		return fmt.Errorf("PROVIDER_FIXTURE_PATH is required when PROVIDER_SOURCE is fixture")
	}
	if c.LeadStore == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when LEAD_STORE is sqlite")
	}
	if !c.CORSAllowAll && len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin unless CORS_ALLOW_ALL is true")
	}
	if !c.ZAPIUseFake && (c.ZAPIInstance == "") != (c.ZAPIToken == "") {
		return fmt.Errorf("ZAPI_INSTANCE and ZAPI_TOKEN must be set together")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func atLeastOne(value int) int {
	if value < 1 {
		return 1
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
