package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"trustcheck/pkg/domain"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// PostgresDSN selects the durable cache store. Empty means in-memory.
	PostgresDSN string

	// RedisURL enables the shared Redis cache store variant. Empty disables it.
	RedisURL string

	// KafkaBrokers enables the resolution audit trail. Empty disables it.
	KafkaBrokers []string
	AuditTopic   string

	// AdminJWTKey guards the cache maintenance endpoints.
	AdminJWTKey string

	Retry   RetryConfig
	Sources map[domain.Source]SourceConfig
}

// RetryConfig bounds the resilient call wrapper.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// SourceConfig holds the per-source knobs: freshness, pacing, and the hard
// call timeout.
type SourceConfig struct {
	TTL         time.Duration
	MinInterval time.Duration
	Timeout     time.Duration
	BaseURL     string
}

// FromEnv builds a Config from environment variables with dev-safe defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("TRUSTCHECK_ADDR", ":8080"),
		PostgresDSN: os.Getenv("TRUSTCHECK_POSTGRES_DSN"),
		RedisURL:    os.Getenv("TRUSTCHECK_REDIS_URL"),
		AuditTopic:  envOr("TRUSTCHECK_AUDIT_TOPIC", "trustcheck.resolutions"),
		AdminJWTKey: envOr("TRUSTCHECK_ADMIN_JWT_KEY", "dev-admin-key-change-in-production"),
		Retry: RetryConfig{
			MaxRetries:   envInt("TRUSTCHECK_MAX_RETRIES", 3),
			InitialDelay: envDuration("TRUSTCHECK_RETRY_DELAY", time.Second),
		},
		Sources: DefaultSources(),
	}
	if brokers := os.Getenv("TRUSTCHECK_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

// DefaultSources returns the per-source defaults. TTLs follow the freshness
// guarantees of each registry: company facts weekly, VAT dealer status
// monthly. Scrape-backed sources get longer timeouts and wider spacing.
func DefaultSources() map[domain.Source]SourceConfig {
	return map[domain.Source]SourceConfig{
		domain.SourceCompaniesRegistry: {
			TTL:         7 * 24 * time.Hour,
			MinInterval: 2 * time.Second,
			Timeout:     15 * time.Second,
			BaseURL:     envOr("TRUSTCHECK_COMPANIES_URL", "https://data.gov.il/api/3/action/datastore_search"),
		},
		domain.SourceCourtSearch: {
			TTL:         7 * 24 * time.Hour,
			MinInterval: 3 * time.Second,
			Timeout:     45 * time.Second,
			BaseURL:     envOr("TRUSTCHECK_COURTS_URL", "https://www.court.gov.il/ngcs.web.site"),
		},
		domain.SourceEnforcementAuthority: {
			TTL:         7 * 24 * time.Hour,
			MinInterval: 3 * time.Second,
			Timeout:     30 * time.Second,
			BaseURL:     envOr("TRUSTCHECK_ENFORCEMENT_URL", "https://www.gov.il/api/eca"),
		},
		domain.SourceVATDealerRegistry: {
			TTL:         30 * 24 * time.Hour,
			MinInterval: 2 * time.Second,
			Timeout:     15 * time.Second,
			BaseURL:     envOr("TRUSTCHECK_VAT_URL", "https://www.misim.gov.il/emosekmorshe"),
		},
		domain.SourceBankRestrictions: {
			TTL:         7 * 24 * time.Hour,
			MinInterval: time.Second,
			Timeout:     10 * time.Second,
			BaseURL:     envOr("TRUSTCHECK_BANK_URL", "https://www.boi.org.il/restricted-accounts"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
