package config

import (
	"time"

	"github.com/devlopersumit/issuehub/internal/policy"
)

// Config represents the complete application configuration
type Config struct {
	ConfigPath    string
	GitHub        GitHubConfig
	Search        SearchConfig
	Bounty        BountyConfig
	Enrichment    EnrichmentConfig
	StateStore    StateStoreConfig
	API           APIConfig
	Observability ObservabilityConfig
}

// GitHubConfig configures the upstream client
type GitHubConfig struct {
	BaseURL       string
	Host          string
	Token         string
	DiscoverToken bool
	Timeout       time.Duration
}

// SearchConfig configures the fetch orchestrator
type SearchConfig struct {
	FreshTTL        time.Duration
	MaxRetryDelay   time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration
	PerPage         int
	SessionPoolSize int
	ResolveTimeout  time.Duration
}

// BountyConfig configures the classification pipeline and its refresh loop
type BountyConfig struct {
	Queries           []string
	QueryDelay        time.Duration
	BatchSize         int
	BatchPause        time.Duration
	MaxResults        int
	RefreshInterval   time.Duration
	NewSignalDuration time.Duration
	Legitimacy        policy.Config
}

// EnrichmentConfig configures the language enrichment worker
type EnrichmentConfig struct {
	Enabled bool
	Pause   time.Duration
}

// StateStoreConfig configures the persistent key-value store
type StateStoreConfig struct {
	Type          string
	SQLitePath    string
	PurgeInterval time.Duration
}

// APIConfig configures the HTTP API server
type APIConfig struct {
	Enabled bool
	Port    int
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel        string
	LogFormat       string
	MetricsPort     int
	HealthCheckPort int
}

// FileConfig is the optional issuehub.yml defaults file
type FileConfig struct {
	Version    string         `yaml:"version"`
	GitHub     GitHubFile     `yaml:"github"`
	Search     SearchFile     `yaml:"search"`
	Bounty     BountyFile     `yaml:"bounty"`
	Enrichment EnrichmentFile `yaml:"enrichment"`
	Store      StoreFile      `yaml:"store"`
}

// GitHubFile holds upstream defaults
type GitHubFile struct {
	BaseURL string `yaml:"baseURL,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// SearchFile holds orchestrator defaults
type SearchFile struct {
	FreshTTL      string `yaml:"freshTTL,omitempty"`
	MaxRetryDelay string `yaml:"maxRetryDelay,omitempty"`
	RetryAttempts int    `yaml:"retryAttempts,omitempty"`
	RetryBackoff  string `yaml:"retryBackoff,omitempty"`
	PerPage       int    `yaml:"perPage,omitempty"`
}

// BountyFile holds pipeline defaults
type BountyFile struct {
	Queries         []string       `yaml:"queries,omitempty"`
	QueryDelay      string         `yaml:"queryDelay,omitempty"`
	BatchSize       int            `yaml:"batchSize,omitempty"`
	BatchPause      string         `yaml:"batchPause,omitempty"`
	MaxResults      int            `yaml:"maxResults,omitempty"`
	RefreshInterval string         `yaml:"refreshInterval,omitempty"`
	Legitimacy      *policy.Config `yaml:"legitimacy,omitempty"`
}

// EnrichmentFile holds enrichment defaults
type EnrichmentFile struct {
	Pause string `yaml:"pause,omitempty"`
}

// StoreFile holds store defaults
type StoreFile struct {
	PurgeInterval string `yaml:"purgeInterval,omitempty"`
}
