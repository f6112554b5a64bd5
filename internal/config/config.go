// Package config loads toolkit configuration from a file, environment
// variables, and CLI flags, in ascending priority.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProxyConfig holds proxy configuration.
type ProxyConfig struct {
	Enabled bool   `json:"enabled"`
	HTTP    string `json:"http,omitempty"`
	HTTPS   string `json:"https,omitempty"`
	NoProxy string `json:"no_proxy,omitempty"`
}

// TLSConfig holds TLS/security configuration.
type TLSConfig struct {
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	CAFile             string `json:"ca_file,omitempty"`
}

// NetworkConfig holds network-related configuration. RESTTimeout and
// SOAPTimeout set the timeouts of the REST (C5, C6) and SOAP (C7) clients;
// DownloadTimeout and MaxIdleConn are not read by any component, and the
// WinGet catalog download (C9) uses http.DefaultClient.
type NetworkConfig struct {
	RESTTimeout     time.Duration `json:"rest_timeout"`
	SOAPTimeout     time.Duration `json:"soap_timeout"`
	DownloadTimeout time.Duration `json:"download_timeout"` // 0 = unbounded
	MaxIdleConn     int           `json:"max_idle_conn"`
}

// LoggingConfig controls the handler built by internal/logging.
type LoggingConfig struct {
	Level string `json:"level"` // debug, info, warn, error
	JSON  bool   `json:"json"`
}

// Endpoints holds the Microsoft service base URLs (spec §6). Only FE3 and
// WingetSourceDefault are read by the clients; the DisplayCatalog and
// PackageManifests clients use their built-in production URLs, so
// overriding DisplayCatalogProduction, DisplayCatalogInt or
// PackageManifests has no effect beyond config validation.
type Endpoints struct {
	DisplayCatalogProduction string `json:"display_catalog_production"`
	DisplayCatalogInt        string `json:"display_catalog_int"`
	PackageManifests         string `json:"package_manifests"`
	FE3                      string `json:"fe3"`
	WingetSourceDefault      string `json:"winget_source_default"`
}

// Config is the toolkit's full configuration surface.
type Config struct {
	Endpoints Endpoints     `json:"endpoints"`
	Network   NetworkConfig `json:"network"`
	Proxy     ProxyConfig   `json:"proxy,omitempty"`
	TLS       TLSConfig     `json:"tls,omitempty"`
	Logging   LoggingConfig `json:"logging"`

	CacheDir        string `json:"cache_dir"`
	DefaultMarket   string `json:"default_market"`
	DefaultLanguage string `json:"default_language"`
}

// CLIFlags holds command line flag values, the subset of Config a cobra
// command may override.
type CLIFlags struct {
	ConfigFile  string
	CacheDir    string
	LogLevel    string
	LogJSON     bool
	Market      string
	Language    string
	ProxyHTTP   string
	ProxyHTTPS  string
	InsecureTLS bool
}

// Load reads configuration from multiple sources with priority order:
// 1. CLI flags (highest)
// 2. Environment variables
// 3. Configuration file
// 4. Default values
func Load(configPath string, flags *CLIFlags) (*Config, error) {
	cfg := getDefaultConfig()

	if fileCfg, err := loadFromFile(configPath); err == nil {
		mergeConfig(cfg, fileCfg)
	} else {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	mergeConfig(cfg, loadFromEnv())

	if flags != nil {
		mergeConfig(cfg, loadFromFlags(flags))
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getDefaultConfig() *Config {
	return &Config{
		Endpoints: Endpoints{
			DisplayCatalogProduction: "https://displaycatalog.mp.microsoft.com/v7.0/products",
			DisplayCatalogInt:        "https://displaycatalog-int.mp.microsoft.com/v7.0/products",
			PackageManifests:         "https://storeedgefd.dsx.mp.microsoft.com/v9.0/packageManifests",
			FE3:                      "https://fe3.delivery.mp.microsoft.com/ClientWebService/client.asmx/secured",
			WingetSourceDefault:      "https://cdn.winget.microsoft.com/cache",
		},
		Network: NetworkConfig{
			RESTTimeout:     30 * time.Second,
			SOAPTimeout:     60 * time.Second,
			DownloadTimeout: 0,
			MaxIdleConn:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		CacheDir:        defaultCacheDir(),
		DefaultMarket:   "US",
		DefaultLanguage: "en",
	}
}

func defaultCacheDir() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return filepath.Join(dir, "msdelivery")
	}
	if dir := os.Getenv("TEMP"); dir != "" {
		return filepath.Join(dir, "msdelivery")
	}
	return filepath.Join(os.TempDir(), "msdelivery")
}

// loadFromFile reads configuration from file, returning defaults if the
// file does not exist.
func loadFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return getDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	return &cfg, nil
}

func loadFromEnv() *Config {
	cfg := &Config{}

	if v := os.Getenv("MSDELIVERY_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("MSDELIVERY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MSDELIVERY_MARKET"); v != "" {
		cfg.DefaultMarket = v
	}
	if v := os.Getenv("MSDELIVERY_LANGUAGE"); v != "" {
		cfg.DefaultLanguage = v
	}
	if v := os.Getenv("MSDELIVERY_HTTP_PROXY"); v != "" {
		cfg.Proxy.Enabled = true
		cfg.Proxy.HTTP = v
	}
	if v := os.Getenv("MSDELIVERY_HTTPS_PROXY"); v != "" {
		cfg.Proxy.Enabled = true
		cfg.Proxy.HTTPS = v
	}

	return cfg
}

func loadFromFlags(flags *CLIFlags) *Config {
	cfg := &Config{}

	if flags.CacheDir != "" {
		cfg.CacheDir = flags.CacheDir
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	cfg.Logging.JSON = flags.LogJSON
	if flags.Market != "" {
		cfg.DefaultMarket = flags.Market
	}
	if flags.Language != "" {
		cfg.DefaultLanguage = flags.Language
	}
	if flags.ProxyHTTP != "" || flags.ProxyHTTPS != "" {
		cfg.Proxy = ProxyConfig{Enabled: true, HTTP: flags.ProxyHTTP, HTTPS: flags.ProxyHTTPS}
	}
	if flags.InsecureTLS {
		cfg.TLS = TLSConfig{InsecureSkipVerify: true}
	}

	return cfg
}

// mergeConfig merges non-zero fields of source into target.
func mergeConfig(target, source *Config) {
	if source.Endpoints != (Endpoints{}) {
		target.Endpoints = source.Endpoints
	}
	if source.Network != (NetworkConfig{}) {
		target.Network = source.Network
	}
	if source.Proxy != (ProxyConfig{}) {
		target.Proxy = source.Proxy
	}
	if source.TLS != (TLSConfig{}) {
		target.TLS = source.TLS
	}
	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	target.Logging.JSON = target.Logging.JSON || source.Logging.JSON
	if source.CacheDir != "" {
		target.CacheDir = source.CacheDir
	}
	if source.DefaultMarket != "" {
		target.DefaultMarket = source.DefaultMarket
	}
	if source.DefaultLanguage != "" {
		target.DefaultLanguage = source.DefaultLanguage
	}
}

// validateConfig validates configuration values.
func validateConfig(cfg *Config) error {
	if cfg.Endpoints.DisplayCatalogProduction == "" {
		return fmt.Errorf("endpoints.display_catalog_production is required")
	}
	if cfg.Endpoints.PackageManifests == "" {
		return fmt.Errorf("endpoints.package_manifests is required")
	}
	if cfg.Endpoints.FE3 == "" {
		return fmt.Errorf("endpoints.fe3 is required")
	}
	if cfg.Network.RESTTimeout <= 0 {
		return fmt.Errorf("network.rest_timeout must be positive")
	}
	if cfg.Network.SOAPTimeout <= 0 {
		return fmt.Errorf("network.soap_timeout must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level != "" && !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	return nil
}

// Save writes configuration to file.
func (c *Config) Save(configPath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
