// Package config provides centralized configuration management for domainsearch.
// It implements the three-layer config pattern:
// Layer 1: embedded defaults (defaults.yaml)
// Layer 2: user overrides (discovered via app identity, or an explicit file)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/namelens/domainsearch/internal/appid"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity

	// configFile, when set, replaces user config discovery.
	configFile string
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// legacyEnvSpecs maps the unprefixed credential names used by existing
// deployments. Prefixed variables win when both are set.
var legacyEnvSpecs = []EnvVarSpec{
	{Name: "NAMECHEAP_API_USER", Path: []string{"registrars", "namecheap", "api_user"}, Type: EnvString},
	{Name: "NAMECHEAP_API_KEY", Path: []string{"registrars", "namecheap", "api_key"}, Type: EnvString},
	{Name: "NAMECHEAP_USERNAME", Path: []string{"registrars", "namecheap", "username"}, Type: EnvString},
	{Name: "NAMECHEAP_CLIENT_IP", Path: []string{"registrars", "namecheap", "client_ip"}, Type: EnvString},
	{Name: "GODADDY_API_KEY", Path: []string{"registrars", "godaddy", "api_key"}, Type: EnvString},
	{Name: "GODADDY_API_SECRET", Path: []string{"registrars", "godaddy", "api_secret"}, Type: EnvString},
	{Name: "PORKBUN_API_KEY", Path: []string{"registrars", "porkbun", "api_key"}, Type: EnvString},
	{Name: "PORKBUN_SECRET_KEY", Path: []string{"registrars", "porkbun", "secret_key"}, Type: EnvString},
	{Name: "LOOPIA_USERNAME", Path: []string{"registrars", "loopia", "username"}, Type: EnvString},
	{Name: "LOOPIA_PASSWORD", Path: []string{"registrars", "loopia", "password"}, Type: EnvString},
	{Name: "CRON_SECRET", Path: []string{"cron", "secret"}, Type: EnvString},
}

// SetConfigFile pins the user config layer to path. An empty path restores
// XDG discovery.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// Load loads configuration using the three-layer pattern:
// 1. Embedded defaults
// 2. User overrides from XDG config paths (or SetConfigFile)
// 3. Environment variables and runtime overrides
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	merged := map[string]any{}
	if err := yaml.Unmarshal(defaultsYAML, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}

	userLayer, err := loadUserLayer()
	if err != nil {
		return nil, err
	}
	mergeMaps(merged, userLayer)

	legacyOverrides, err := gfconfig.LoadEnvOverrides(legacyEnvSpecs)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	mergeMaps(merged, legacyOverrides)

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if appIdentity != nil {
		prefix := envPrefix()
		if value := strings.TrimSpace(os.Getenv(prefix + "RATE_LIMIT_MARGIN")); value != "" {
			margin, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid rate limit margin: %w", err)
			}
			envOverrides["rate_limit_margin"] = margin
		}
	}
	mergeMaps(merged, envOverrides)

	for _, override := range runtimeOverrides {
		mergeMaps(merged, override)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(cfg.Prices.Path) == "" {
		cfg.Prices.Path = DefaultPricesPath()
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func loadUserLayer() (map[string]any, error) {
	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()

	paths := getUserConfigPaths()
	if explicit != "" {
		paths = []string{explicit}
	}

	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- user-selected config path
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && explicit == "" {
				continue
			}
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		layer := map[string]any{}
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		return layer, nil
	}
	return map[string]any{}, nil
}

// mergeMaps deep-merges src into dst; nested maps merge, everything else replaces.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := asStringMap(value)
		if srcIsMap {
			if dstMap, ok := asStringMap(dst[key]); ok {
				mergeMaps(dstMap, srcMap)
				dst[key] = dstMap
				continue
			}
			copied := map[string]any{}
			mergeMaps(copied, srcMap)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}

func asStringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// getUserConfigPaths returns the list of user config file paths to check
// Uses gofulmen/config for XDG-compliant path discovery
func getUserConfigPaths() []string {
	if appIdentity == nil {
		return []string{}
	}

	appName := appIdentity.ConfigName
	if strings.TrimSpace(appName) == "" {
		appName = appIdentity.BinaryName
	}
	if strings.TrimSpace(appName) == "" {
		appName = appid.DefaultBinaryName
	}

	legacyNames := []string{}
	if appIdentity.BinaryName != "" && appIdentity.BinaryName != appName {
		legacyNames = append(legacyNames, appIdentity.BinaryName)
	}

	return gfconfig.GetAppConfigPaths(appName, legacyNames...)
}

func envPrefix() string {
	prefix := appid.DefaultEnvPrefix
	if appIdentity != nil && appIdentity.EnvPrefix != "" {
		prefix = appIdentity.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	if appIdentity == nil {
		return []EnvVarSpec{}
	}

	prefix := envPrefix()

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Domain lookups
		{Name: prefix + "DNS_TIMEOUT", Path: []string{"domain", "availability", "timeout"}, Type: EnvString},
		{Name: prefix + "DNS_MIN_RANDOM_RUN", Path: []string{"domain", "availability", "min_random_run"}, Type: EnvInt},
		{Name: prefix + "DNS_DENYLIST", Path: []string{"domain", "availability", "denylist"}, Type: EnvString},
		{Name: prefix + "DNS_NAMESERVER", Path: []string{"domain", "availability", "nameserver"}, Type: EnvString},
		{Name: prefix + "DEMAND_TRENDS_ENABLED", Path: []string{"domain", "demand", "trends_enabled"}, Type: EnvBool},
		{Name: prefix + "DEMAND_TIMEOUT", Path: []string{"domain", "demand", "timeout"}, Type: EnvString},
		{Name: prefix + "DEMAND_CACHE_TTL", Path: []string{"domain", "demand", "cache_ttl"}, Type: EnvString},
		{Name: prefix + "RDAP_SERVER", Path: []string{"domain", "info", "server"}, Type: EnvString},
		{Name: prefix + "RDAP_TIMEOUT", Path: []string{"domain", "info", "timeout"}, Type: EnvString},
		{Name: prefix + "RDAP_CACHE_TTL", Path: []string{"domain", "info", "cache_ttl"}, Type: EnvString},

		// Search and prices
		{Name: prefix + "SEARCH_TLDS", Path: []string{"search", "tlds"}, Type: EnvString},
		{Name: prefix + "SEARCH_TIMEOUT", Path: []string{"search", "timeout"}, Type: EnvString},
		{Name: prefix + "PRICES_PATH", Path: []string{"prices", "path"}, Type: EnvString},
		{Name: prefix + "PRICES_SCRAPE_DELAY", Path: []string{"prices", "scrape_delay"}, Type: EnvString},

		// Registrar credentials
		{Name: prefix + "NAMECHEAP_API_USER", Path: []string{"registrars", "namecheap", "api_user"}, Type: EnvString},
		{Name: prefix + "NAMECHEAP_API_KEY", Path: []string{"registrars", "namecheap", "api_key"}, Type: EnvString},
		{Name: prefix + "NAMECHEAP_CLIENT_IP", Path: []string{"registrars", "namecheap", "client_ip"}, Type: EnvString},
		{Name: prefix + "NAMECHEAP_ENDPOINT", Path: []string{"registrars", "namecheap", "endpoint"}, Type: EnvString},
		{Name: prefix + "GODADDY_API_KEY", Path: []string{"registrars", "godaddy", "api_key"}, Type: EnvString},
		{Name: prefix + "GODADDY_API_SECRET", Path: []string{"registrars", "godaddy", "api_secret"}, Type: EnvString},
		{Name: prefix + "PORKBUN_API_KEY", Path: []string{"registrars", "porkbun", "api_key"}, Type: EnvString},
		{Name: prefix + "PORKBUN_SECRET_KEY", Path: []string{"registrars", "porkbun", "secret_key"}, Type: EnvString},
		{Name: prefix + "LOOPIA_USERNAME", Path: []string{"registrars", "loopia", "username"}, Type: EnvString},
		{Name: prefix + "LOOPIA_PASSWORD", Path: []string{"registrars", "loopia", "password"}, Type: EnvString},
		{Name: prefix + "CRON_SECRET", Path: []string{"cron", "secret"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to the compiled-in binary name.
func appNamesForPaths() (configName string, binaryName string) {
	configName = appid.DefaultBinaryName
	binaryName = appid.DefaultBinaryName
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	_, binaryName := appNamesForPaths()
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}

// DefaultPricesPath returns where the refreshed registrar price table lives.
func DefaultPricesPath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./domain-prices.json"
	}
	return filepath.Join(dataDir, "domain-prices.json")
}
