// Package config handles configuration loading from CLI flags, environment
// variables and an optional TOML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"hexserve/internal/validator"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/hexserve/config.toml",
	"configs/config.toml",
}

// PlaceholderAPIKey is the value shipped in the example config.
const PlaceholderAPIKey = "YOUR_API_KEY_HERE"

// CLI holds command-line arguments parsed by Kong. Every flag can also be set
// through its environment variable.
type CLI struct {
	Config         string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host           string `kong:"help='Listen host.',env='HOST'"`
	Port           int    `kong:"short='p',help='Listen port.',env='PORT'"`
	ServeDir       string `kong:"help='Directory to browse.',env='SERVE_DIR'"`
	URLPrefix      string `kong:"help='URL prefix of the file browser.',env='URL_PREFIX'"`
	ProxyPrefix    string `kong:"help='URL prefix of the Riot API proxy.',env='PROXY_PREFIX'"`
	RiotAPIKey     string `kong:"help='Riot API key; the proxy is disabled when empty.',env='RIOT_API_KEY'"`
	RiotAPIBaseURL string `kong:"help='Default Riot API base URL.',env='RIOT_API_BASE_URL'"`
	LogLevel       string `kong:"help='Log level: debug|info|warn|error.',env='LOG_LEVEL'"`
	LogDir         string `kong:"help='Directory for rotated log files.',env='LOG_DIR'"`
	Environment    string `kong:"help='Environment name attached to log records.',env='ENVIRONMENT,NODE_ENV'"`
}

// Config is the top-level application configuration. It is built once by
// Load and treated as read-only afterwards.
type Config struct {
	Server      ServerConfig   `toml:"server"`
	Files       FilesConfig    `toml:"files"`
	Riot        RiotConfig     `toml:"riot"`
	Upstream    UpstreamConfig `toml:"upstream"`
	Log         LogConfig      `toml:"log"`
	Metrics     MetricsConfig  `toml:"metrics"`
	Environment string         `toml:"environment"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (3000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// FilesConfig holds file browser settings.
type FilesConfig struct {
	ServeDir  string `toml:"serve_dir"`
	URLPrefix string `toml:"url_prefix"`
}

// RiotConfig holds the Riot API proxy settings.
type RiotConfig struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	ProxyPrefix string `toml:"proxy_prefix"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	TimeoutSeconds  int `toml:"timeout_seconds"`
	IdleConnections int `toml:"idle_connections"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load builds the configuration from an optional TOML file and the CLI/env
// overrides. When no explicit path is given (via --config or CONFIG_PATH), it
// searches /etc/hexserve/config.toml then configs/config.toml; finding none is
// not an error.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)
	cfg.setDefaults()

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config: normalize: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.ServeDir != "" {
		c.Files.ServeDir = cli.ServeDir
	}
	if cli.URLPrefix != "" {
		c.Files.URLPrefix = cli.URLPrefix
	}
	if cli.ProxyPrefix != "" {
		c.Riot.ProxyPrefix = cli.ProxyPrefix
	}
	if cli.RiotAPIKey != "" {
		c.Riot.APIKey = cli.RiotAPIKey
	}
	if cli.RiotAPIBaseURL != "" {
		c.Riot.BaseURL = cli.RiotAPIBaseURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if cli.LogDir != "" {
		c.Log.Dir = cli.LogDir
	}
	if cli.Environment != "" {
		c.Environment = cli.Environment
	}
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish an
// explicit 0 from an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Files.ServeDir == "" {
		c.Files.ServeDir = "./public"
	}
	if c.Files.URLPrefix == "" {
		c.Files.URLPrefix = "/latest"
	}
	if c.Riot.BaseURL == "" {
		c.Riot.BaseURL = "https://euw1.api.riotgames.com"
	}
	if c.Riot.ProxyPrefix == "" {
		c.Riot.ProxyPrefix = "/riot-api"
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

func (c *Config) normalize() error {
	c.Files.URLPrefix = NormalizePrefix(c.Files.URLPrefix)
	c.Riot.ProxyPrefix = NormalizePrefix(c.Riot.ProxyPrefix)
	c.Riot.BaseURL = strings.TrimRight(c.Riot.BaseURL, "/")

	dir, err := filepath.Abs(c.Files.ServeDir)
	if err != nil {
		return fmt.Errorf("files.serve_dir %q: %w", c.Files.ServeDir, err)
	}
	c.Files.ServeDir = dir
	return nil
}

func (c *Config) validate() error {
	if c.Riot.APIKey == PlaceholderAPIKey {
		return fmt.Errorf("riot.api_key contains placeholder value; set a real key or leave empty to disable the proxy")
	}

	if err := validator.BaseURL(c.Riot.BaseURL); err != nil {
		return fmt.Errorf("riot.base_url: %w", err)
	}

	// Numeric bounds.
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_age_days must be non-negative")
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Route prefixes.
	if c.Files.URLPrefix == "" {
		return fmt.Errorf("files.url_prefix must not be the root path")
	}
	if c.Riot.ProxyPrefix == "" {
		return fmt.Errorf("riot.proxy_prefix must not be the root path")
	}
	if overlaps(c.Files.URLPrefix, c.Riot.ProxyPrefix) {
		return fmt.Errorf("files.url_prefix %q and riot.proxy_prefix %q overlap", c.Files.URLPrefix, c.Riot.ProxyPrefix)
	}
	if c.Metrics.Enabled {
		if c.Metrics.Path[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", c.Metrics.Path)
		}
	}
	for _, reserved := range c.reservedRoutes() {
		for _, p := range []string{c.Files.URLPrefix, c.Riot.ProxyPrefix} {
			if overlaps(p, reserved) {
				return fmt.Errorf("prefix %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func (c *Config) reservedRoutes() []string {
	routes := []string{"/health", "/healthz", "/status"}
	if c.Metrics.Enabled {
		routes = append(routes, c.Metrics.Path)
	}
	return routes
}

// overlaps reports whether one path is equal to or nested under the other.
func overlaps(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// NormalizePrefix makes p start with "/" and strips trailing slashes. The
// root path normalizes to the empty string.
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

// ProxyEnabled reports whether a Riot API key is configured.
func (c *Config) ProxyEnabled() bool {
	return c.Riot.APIKey != ""
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or
// others. The file may hold the Riot API key.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
