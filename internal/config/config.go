// Package config loads and validates crawl run configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. SCAMCRAWL_CRAWLER_MAX_DEPTH=2.
const EnvPrefix = "SCAMCRAWL"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Snapshot backends.
const (
	SnapshotNone  = "none"
	SnapshotLocal = "local"
	SnapshotGCS   = "gcs"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Store    StoreConfig    `mapstructure:"store"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs the worker pool and traversal.
type CrawlerConfig struct {
	SeedURLs         []string `mapstructure:"seed_urls"`
	MaxDepth         int      `mapstructure:"max_depth"`
	Concurrency      int      `mapstructure:"concurrency"`
	DelaySeconds     float64  `mapstructure:"delay_seconds"`
	RunBudgetSeconds int      `mapstructure:"run_budget_seconds"`
	UserAgents       []string `mapstructure:"user_agents"`
	RespectRobots    bool     `mapstructure:"respect_robots"`
	StorePageText    bool     `mapstructure:"store_page_text"`
	QueueDepth       int      `mapstructure:"queue_depth"`
}

// HTTPConfig configures fetch timeouts and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds     int  `mapstructure:"timeout_seconds"`
	MaxAttempts        int  `mapstructure:"max_attempts"`
	BackoffInitialMs   int  `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs       int  `mapstructure:"backoff_max_ms"`
	LegacyTLSFallback  bool `mapstructure:"legacy_tls_fallback"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// EnrichConfig controls WHOIS and DNS lookups.
type EnrichConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	DNSServers          []string `mapstructure:"dns_servers"`
	DNSTimeoutSeconds   int      `mapstructure:"dns_timeout_seconds"`
	WhoisTimeoutSeconds int      `mapstructure:"whois_timeout_seconds"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SnapshotConfig selects where rendered page text is written.
type SnapshotConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig controls the operational HTTP surface.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// NewViper returns a Viper instance with defaults and environment binding applied.
// Callers bind CLI flags onto it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Snapshot.Backend = strings.ToLower(strings.TrimSpace(cfg.Snapshot.Backend))
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.seed_urls", []string{})
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.concurrency", 5)
	v.SetDefault("crawler.delay_seconds", 2)
	v.SetDefault("crawler.run_budget_seconds", 0)
	v.SetDefault("crawler.user_agents", []string{})
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.store_page_text", false)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 8000)
	v.SetDefault("http.legacy_tls_fallback", true)
	v.SetDefault("http.insecure_skip_verify", true)
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.dns_servers", []string{"8.8.8.8:53", "1.1.1.1:53"})
	v.SetDefault("enrich.dns_timeout_seconds", 5)
	v.SetDefault("enrich.whois_timeout_seconds", 10)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "intel_records")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("snapshot.backend", SnapshotNone)
	v.SetDefault("snapshot.base_dir", "")
	v.SetDefault("snapshot.gcs_bucket", "")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("server.metrics_addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Every error wraps
// crawler.ErrInvalidConfig.
func (c Config) Validate() error {
	if len(c.Crawler.SeedURLs) == 0 {
		return invalid("crawler.seed_urls must contain at least one URL")
	}
	for _, seed := range c.Crawler.SeedURLs {
		u, err := url.Parse(seed)
		if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return invalid("seed %q is not an absolute http(s) URL", seed)
		}
	}
	if c.Crawler.MaxDepth < 0 {
		return invalid("crawler.max_depth must be >= 0")
	}
	if c.Crawler.Concurrency < 1 {
		return invalid("crawler.concurrency must be >= 1")
	}
	if c.Crawler.DelaySeconds < 0 {
		return invalid("crawler.delay_seconds must be >= 0")
	}
	if c.Crawler.RunBudgetSeconds < 0 {
		return invalid("crawler.run_budget_seconds must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return invalid("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts < 1 {
		return invalid("http.max_attempts must be >= 1")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	switch c.Snapshot.Backend {
	case "", SnapshotNone:
	case SnapshotLocal:
		if strings.TrimSpace(c.Snapshot.BaseDir) == "" {
			return invalid("snapshot.base_dir is required for the local backend")
		}
	case SnapshotGCS:
		if c.Snapshot.GCSBucket == "" {
			return invalid("snapshot.gcs_bucket is required for the gcs backend")
		}
	default:
		return invalid("unknown snapshot.backend %q", c.Snapshot.Backend)
	}
	if c.Crawler.StorePageText && (c.Snapshot.Backend == "" || c.Snapshot.Backend == SnapshotNone) {
		return invalid("crawler.store_page_text requires a snapshot.backend")
	}
	return nil
}

// ValidateStore checks only the store section. The count command needs no seeds.
func (c Config) ValidateStore() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return invalid("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return invalid("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// Timeout is the per-request fetch timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Delay is the minimum pause between requests issued by one worker.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Crawler.DelaySeconds * float64(time.Second))
}

// Budget bounds the whole run. Zero means unlimited.
func (c Config) Budget() time.Duration {
	return time.Duration(c.Crawler.RunBudgetSeconds) * time.Second
}

// BackoffInitial is the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax caps the retry delay.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), crawler.ErrInvalidConfig)
}
