package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUpstreamEndpoint is the third-party scraping API the gateway proxies to
const DefaultUpstreamEndpoint = "https://api.igdownloader.app/api/ajaxSearch"

// DefaultUserAgent is sent to the upstream to look like a regular browser
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Config holds all configuration options for the gateway and its CLI
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	CORS      CORSConfig      `yaml:"cors" json:"cors"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Upstream  UpstreamConfig  `yaml:"upstream" json:"upstream"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`

	// Client settings are used by the fetch and history commands only
	Client ClientConfig `yaml:"client" json:"client"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// CORSConfig holds the origin allow-list
type CORSConfig struct {
	// AllowedOrigins is a list of exact origins, or ["*"] for any origin
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	// EnforceOrigin rejects disallowed origins with 403 instead of only
	// omitting the allow-origin header
	EnforceOrigin bool `yaml:"enforce_origin" json:"enforce_origin"`
}

// AuthConfig holds the shared secret settings
type AuthConfig struct {
	APIKey     string `yaml:"api_key" json:"api_key"`
	UseKeyring bool   `yaml:"use_keyring" json:"use_keyring"`
}

// RateLimitConfig holds the fixed-window limiter settings
type RateLimitConfig struct {
	Window          time.Duration `yaml:"window" json:"window"`
	MaxRequests     int           `yaml:"max_requests" json:"max_requests"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// UpstreamConfig holds settings for the third-party scraping API
type UpstreamConfig struct {
	Endpoint  string        `yaml:"endpoint" json:"endpoint"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// ClientConfig holds settings for talking to a running gateway
type ClientConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKey      string        `yaml:"api_key" json:"api_key"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	HistoryFile string        `yaml:"history_file" json:"history_file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    64 << 10,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			EnforceOrigin:  false,
		},
		Auth: AuthConfig{
			UseKeyring: true,
		},
		RateLimit: RateLimitConfig{
			Window:          60 * time.Second,
			MaxRequests:     10,
			CleanupInterval: 5 * time.Minute,
		},
		Upstream: UpstreamConfig{
			Endpoint:  DefaultUpstreamEndpoint,
			Timeout:   10 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 20 * time.Second,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// The unprefixed names are the ones the gateway has always recognised;
// IGPROXY_* covers everything else.
func (c *Config) LoadFromEnv() error {
	var errs []error

	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && strings.TrimSpace(origins) != "" {
		c.CORS.AllowedOrigins = ParseOrigins(origins)
	}
	if enforce := os.Getenv("ENFORCE_ALLOWED_ORIGINS"); enforce != "" {
		c.CORS.EnforceOrigin = parseBool(enforce)
	}

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		c.Auth.APIKey = apiKey
	}

	if window := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); window != "" {
		if val, err := parsePositiveInt("RATE_LIMIT_WINDOW_SECONDS", window); err != nil {
			errs = append(errs, err)
		} else {
			c.RateLimit.Window = time.Duration(val) * time.Second
		}
	}
	if maxRequests := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); maxRequests != "" {
		if val, err := parsePositiveInt("RATE_LIMIT_MAX_REQUESTS", maxRequests); err != nil {
			errs = append(errs, err)
		} else {
			c.RateLimit.MaxRequests = val
		}
	}

	if host := os.Getenv("IGPROXY_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("IGPROXY_PORT"); port != "" {
		if val, err := parsePositiveInt("IGPROXY_PORT", port); err != nil {
			errs = append(errs, err)
		} else {
			c.Server.Port = val
		}
	}

	if endpoint := os.Getenv("IGPROXY_UPSTREAM_ENDPOINT"); endpoint != "" {
		c.Upstream.Endpoint = endpoint
	}
	if timeout := os.Getenv("IGPROXY_UPSTREAM_TIMEOUT_SECONDS"); timeout != "" {
		if val, err := parsePositiveInt("IGPROXY_UPSTREAM_TIMEOUT_SECONDS", timeout); err != nil {
			errs = append(errs, err)
		} else {
			c.Upstream.Timeout = time.Duration(val) * time.Second
		}
	}

	if logLevel := os.Getenv("IGPROXY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("IGPROXY_LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if baseURL := os.Getenv("IGPROXY_BASE_URL"); baseURL != "" {
		c.Client.BaseURL = baseURL
	}
	if clientKey := os.Getenv("IGPROXY_API_KEY"); clientKey != "" {
		c.Client.APIKey = clientKey
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igproxy.yaml",
		".igproxy.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igproxy", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igproxy", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("at least one allowed origin (or *) is required"))
	}

	if c.RateLimit.Window < time.Second {
		errs = append(errs, errors.New("rate limit window must be at least one second"))
	}
	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate limit max requests must be positive"))
	}
	if c.RateLimit.CleanupInterval < 0 {
		errs = append(errs, errors.New("rate limit cleanup interval cannot be negative"))
	}

	if u, err := url.Parse(c.Upstream.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("upstream endpoint must be an absolute URL"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the current values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if origins, ok := flags["allowed-origins"].(string); ok && origins != "" {
		c.CORS.AllowedOrigins = ParseOrigins(origins)
	}
	if enforce, ok := flags["enforce-origin"].(bool); ok {
		c.CORS.EnforceOrigin = enforce
	}
	if endpoint, ok := flags["upstream"].(string); ok && endpoint != "" {
		c.Upstream.Endpoint = endpoint
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Client.BaseURL = baseURL
	}
	if apiKey, ok := flags["api-key"].(string); ok && apiKey != "" {
		c.Client.APIKey = apiKey
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igproxy.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// ParseOrigins splits a comma-separated origin list, dropping empty entries
func ParseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Redacted returns a copy with secrets masked, suitable for display
func (c *Config) Redacted() *Config {
	out := *c
	out.CORS.AllowedOrigins = append([]string(nil), c.CORS.AllowedOrigins...)
	out.Auth.APIKey = MaskSecret(c.Auth.APIKey)
	out.Client.APIKey = MaskSecret(c.Client.APIKey)
	return &out
}

// MaskSecret masks all but the first and last 4 characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func parsePositiveInt(name, value string) (int, error) {
	val, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", name, val)
	}
	return val, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
