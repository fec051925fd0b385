package config

import (
	"time"
)

// Config represents the complete application configuration.
// Layers, lowest precedence first:
// Layer 1: embedded defaults (defaults.yaml)
// Layer 2: user overrides (~/.config/domainsearch/config.yaml)
// Layer 3: environment variables and runtime overrides
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Domain     DomainConfig     `mapstructure:"domain"`
	Search     SearchConfig     `mapstructure:"search"`
	Prices     PricesConfig     `mapstructure:"prices"`
	Registrars RegistrarsConfig `mapstructure:"registrars"`
	Cron       CronConfig       `mapstructure:"cron"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Debug      DebugConfig      `mapstructure:"debug"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration.
//
// Driver "libsql" (default) supports local files and Turso URLs; driver
// "sqlite" uses the pure-Go engine and needs no cgo.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// DomainConfig groups the per-candidate lookups.
type DomainConfig struct {
	Availability AvailabilityConfig `mapstructure:"availability"`
	Demand       DemandConfig       `mapstructure:"demand"`
	Info         InfoConfig         `mapstructure:"info"`
}

// AvailabilityConfig tunes the DNS availability heuristic.
type AvailabilityConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRandomRun int           `mapstructure:"min_random_run"`
	Denylist     []string      `mapstructure:"denylist"`
	Nameserver   string        `mapstructure:"nameserver"`
}

// DemandConfig configures search-demand estimation.
type DemandConfig struct {
	TrendsEnabled bool          `mapstructure:"trends_enabled"`
	TrendsURL     string        `mapstructure:"trends_url"`
	TimeRange     string        `mapstructure:"time_range"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// InfoConfig configures RDAP enrichment of taken domains.
type InfoConfig struct {
	Server   string        `mapstructure:"server"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SearchConfig controls search fan-out.
type SearchConfig struct {
	TLDs          []string      `mapstructure:"tlds"`
	Timeout       time.Duration `mapstructure:"timeout"`
	IncludePrices bool          `mapstructure:"include_prices"`
}

// PricesConfig locates the registrar price table and paces refreshes.
type PricesConfig struct {
	Path          string        `mapstructure:"path"`
	ScrapeDelay   time.Duration `mapstructure:"scrape_delay"`
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// RegistrarsConfig holds live registrar API credentials.
type RegistrarsConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	Namecheap NamecheapConfig `mapstructure:"namecheap"`
	GoDaddy   GoDaddyConfig   `mapstructure:"godaddy"`
	Porkbun   PorkbunConfig   `mapstructure:"porkbun"`
	Loopia    LoopiaConfig    `mapstructure:"loopia"`
}

// NamecheapConfig configures the Namecheap XML API.
type NamecheapConfig struct {
	APIUser  string `mapstructure:"api_user"`
	APIKey   string `mapstructure:"api_key"`
	UserName string `mapstructure:"username"`
	ClientIP string `mapstructure:"client_ip"`
	Endpoint string `mapstructure:"endpoint"`
}

// GoDaddyConfig configures the GoDaddy availability API.
type GoDaddyConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Endpoint  string `mapstructure:"endpoint"`
}

// PorkbunConfig configures the Porkbun JSON API.
type PorkbunConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

// LoopiaConfig configures the Loopia XML-RPC API.
type LoopiaConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Endpoint string `mapstructure:"endpoint"`
}

// CronConfig guards the scheduled price refresh endpoint.
type CronConfig struct {
	Secret string `mapstructure:"secret"`
	Mode   string `mapstructure:"mode"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
