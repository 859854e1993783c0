package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/github"
)

// Load builds the configuration from hardcoded defaults, then the optional
// issuehub.yml file, then environment variables
func Load() (*Config, error) {
	configPath := getEnv("ISSUEHUB_CONFIG", "issuehub.yml")

	cfg := defaults()
	cfg.ConfigPath = configPath

	if _, err := os.Stat(configPath); err == nil {
		file, err := ParseFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.applyFile(file); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:       github.DefaultBaseURL,
			Host:          "github.com",
			DiscoverToken: true,
			Timeout:       30 * time.Second,
		},
		Search: SearchConfig{
			FreshTTL:        24 * time.Hour,
			MaxRetryDelay:   time.Hour,
			RetryAttempts:   3,
			RetryBackoff:    time.Second,
			PerPage:         30,
			SessionPoolSize: 256,
			ResolveTimeout:  30 * time.Second,
		},
		Bounty: BountyConfig{
			Queries:           bounty.DefaultQueries,
			QueryDelay:        bounty.DefaultQueryDelay,
			BatchSize:         bounty.DefaultBatchSize,
			BatchPause:        bounty.DefaultBatchPause,
			MaxResults:        bounty.DefaultMaxResults,
			RefreshInterval:   bounty.DefaultRefreshInterval,
			NewSignalDuration: bounty.DefaultNewSignalDuration,
		},
		Enrichment: EnrichmentConfig{
			Enabled: true,
			Pause:   300 * time.Millisecond,
		},
		StateStore: StateStoreConfig{
			Type:          "sqlite",
			SQLitePath:    "issuehub.db",
			PurgeInterval: time.Hour,
		},
		API: APIConfig{
			Enabled: true,
			Port:    8080,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       "json",
			MetricsPort:     9090,
			HealthCheckPort: 8081,
		},
	}
}

// applyFile overlays the values set in the defaults file
func (c *Config) applyFile(f *FileConfig) error {
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"github.timeout", f.GitHub.Timeout, &c.GitHub.Timeout},
		{"search.freshTTL", f.Search.FreshTTL, &c.Search.FreshTTL},
		{"search.maxRetryDelay", f.Search.MaxRetryDelay, &c.Search.MaxRetryDelay},
		{"search.retryBackoff", f.Search.RetryBackoff, &c.Search.RetryBackoff},
		{"bounty.queryDelay", f.Bounty.QueryDelay, &c.Bounty.QueryDelay},
		{"bounty.batchPause", f.Bounty.BatchPause, &c.Bounty.BatchPause},
		{"bounty.refreshInterval", f.Bounty.RefreshInterval, &c.Bounty.RefreshInterval},
		{"enrichment.pause", f.Enrichment.Pause, &c.Enrichment.Pause},
		{"store.purgeInterval", f.Store.PurgeInterval, &c.StateStore.PurgeInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := parseDuration(d.value)
		if err != nil {
			return errors.NewPermanentf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if f.GitHub.BaseURL != "" {
		c.GitHub.BaseURL = f.GitHub.BaseURL
	}
	if f.GitHub.Host != "" {
		c.GitHub.Host = f.GitHub.Host
	}
	if f.Search.RetryAttempts > 0 {
		c.Search.RetryAttempts = f.Search.RetryAttempts
	}
	if f.Search.PerPage > 0 {
		c.Search.PerPage = f.Search.PerPage
	}
	if len(f.Bounty.Queries) > 0 {
		c.Bounty.Queries = f.Bounty.Queries
	}
	if f.Bounty.BatchSize > 0 {
		c.Bounty.BatchSize = f.Bounty.BatchSize
	}
	if f.Bounty.MaxResults > 0 {
		c.Bounty.MaxResults = f.Bounty.MaxResults
	}
	if f.Bounty.Legitimacy != nil {
		c.Bounty.Legitimacy = *f.Bounty.Legitimacy
	}
	return nil
}

// applyEnv overlays environment variables
func (c *Config) applyEnv() {
	c.GitHub.BaseURL = getEnv("GITHUB_API_URL", c.GitHub.BaseURL)
	c.GitHub.Host = getEnv("GITHUB_HOST", c.GitHub.Host)
	c.GitHub.Token = getEnv("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.DiscoverToken = getEnvBool("GITHUB_TOKEN_DISCOVERY", c.GitHub.DiscoverToken)
	c.GitHub.Timeout = getEnvDuration("GITHUB_TIMEOUT", c.GitHub.Timeout)

	c.Search.FreshTTL = getEnvDuration("SEARCH_FRESH_TTL", c.Search.FreshTTL)
	c.Search.MaxRetryDelay = getEnvDuration("SEARCH_MAX_RETRY_DELAY", c.Search.MaxRetryDelay)
	c.Search.RetryAttempts = getEnvInt("SEARCH_RETRY_ATTEMPTS", c.Search.RetryAttempts)
	c.Search.PerPage = getEnvInt("SEARCH_PER_PAGE", c.Search.PerPage)
	c.Search.SessionPoolSize = getEnvInt("SEARCH_SESSION_POOL_SIZE", c.Search.SessionPoolSize)
	c.Search.ResolveTimeout = getEnvDuration("SEARCH_RESOLVE_TIMEOUT", c.Search.ResolveTimeout)

	if queries := getEnv("BOUNTY_QUERIES", ""); queries != "" {
		c.Bounty.Queries = splitList(queries, ";")
	}
	c.Bounty.RefreshInterval = getEnvDuration("BOUNTY_REFRESH_INTERVAL", c.Bounty.RefreshInterval)
	c.Bounty.MaxResults = getEnvInt("BOUNTY_MAX_RESULTS", c.Bounty.MaxResults)
	c.Bounty.Legitimacy.Expression = getEnv("BOUNTY_LEGITIMACY_EXPRESSION", c.Bounty.Legitimacy.Expression)

	c.Enrichment.Enabled = getEnvBool("ENRICHMENT_ENABLED", c.Enrichment.Enabled)
	c.Enrichment.Pause = getEnvDuration("ENRICHMENT_PAUSE", c.Enrichment.Pause)

	c.StateStore.Type = getEnv("STATE_STORE_TYPE", c.StateStore.Type)
	c.StateStore.SQLitePath = getEnv("SQLITE_PATH", c.StateStore.SQLitePath)
	c.StateStore.PurgeInterval = getEnvDuration("STORE_PURGE_INTERVAL", c.StateStore.PurgeInterval)

	c.API.Enabled = getEnvBool("API_ENABLED", c.API.Enabled)
	c.API.Port = getEnvInt("API_PORT", c.API.Port)

	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsPort = getEnvInt("METRICS_PORT", c.Observability.MetricsPort)
	c.Observability.HealthCheckPort = getEnvInt("HEALTH_CHECK_PORT", c.Observability.HealthCheckPort)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHub.BaseURL == "" {
		return errors.NewPermanentf("GITHUB_API_URL must not be empty")
	}

	if c.StateStore.Type != "sqlite" && c.StateStore.Type != "memory" {
		return errors.NewPermanentf("invalid state store type: %s (must be sqlite or memory)", c.StateStore.Type)
	}

	if c.StateStore.Type == "sqlite" && c.StateStore.SQLitePath == "" {
		return errors.NewPermanentf("sqlite path is required when using sqlite state store")
	}

	if len(c.Bounty.Queries) == 0 {
		return errors.NewPermanentf("at least one bounty query is required")
	}

	if c.Bounty.MaxResults <= 0 {
		return errors.NewPermanentf("bounty max results must be positive, got %d", c.Bounty.MaxResults)
	}

	if c.Search.RetryAttempts <= 0 {
		return errors.NewPermanentf("search retry attempts must be positive, got %d", c.Search.RetryAttempts)
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "text" {
		return errors.NewPermanentf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	for name, port := range map[string]int{
		"API_PORT":          c.API.Port,
		"METRICS_PORT":      c.Observability.MetricsPort,
		"HEALTH_CHECK_PORT": c.Observability.HealthCheckPort,
	} {
		if port <= 0 || port > 65535 {
			return errors.NewPermanentf("invalid %s: %d", name, port)
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := parseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value, sep string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
