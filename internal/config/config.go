// Package config provides configuration management for the stock matching server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Default configuration values.
const (
	DefaultServerPort       = 8080
	DefaultLogLevel         = "info"
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultMetricsEnabled   = true
	DefaultAuthMode         = "none"
	DefaultTolerance        = "0.40"
	DefaultMaxItems         = 10
	DefaultLongRunningAfter = 10 * time.Second
	DefaultAdmissibility    = "price"
	DefaultGreedyFirst      = false
	DefaultMaxTableCells    = 16_000_000
	DefaultRequestTimeout   = 12 * time.Second
)

// Environment variable names.
const (
	EnvServerPort       = "APP_SERVER_PORT"
	EnvLogLevel         = "APP_LOG_LEVEL"
	EnvShutdownTimeout  = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled   = "APP_METRICS_ENABLED"
	EnvAuthMode         = "APP_AUTH_MODE"
	EnvBasicAuthUsers   = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys          = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvTolerance        = "APP_SEARCH_TOLERANCE"
	EnvMaxItems         = "APP_SEARCH_MAX_ITEMS"
	EnvLongRunningAfter = "APP_SEARCH_LONG_RUNNING_AFTER"
	EnvAdmissibility    = "APP_SEARCH_ADMISSIBILITY"
	EnvGreedyFirst      = "APP_SEARCH_GREEDY_FIRST"
	EnvMaxTableCells    = "APP_SEARCH_MAX_TABLE_CELLS"
	EnvRequestTimeout   = "APP_SEARCH_REQUEST_TIMEOUT"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth users (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API keys (format: "key1:name1,key2:name2").
	APIKeys string

	// Search settings.
	Tolerance        decimal.Decimal
	MaxItems         int
	LongRunningAfter time.Duration
	Admissibility    string
	GreedyFirst      bool
	MaxTableCells    int64
	RequestTimeout   time.Duration
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, basic, apikey, multi")
	ErrInvalidBasicAuthConfig = errors.New("basic auth users must be set when auth mode is basic")
	ErrInvalidAPIKeyConfig    = errors.New("API keys must be set when auth mode is apikey")
	ErrInvalidMultiAuthConfig = errors.New(
		"basic auth users or API keys must be set when auth mode is multi",
	)
	ErrInvalidTolerance        = errors.New("search tolerance cannot be negative")
	ErrInvalidMaxItems         = errors.New("search max items must be at least 1")
	ErrInvalidLongRunningAfter = errors.New("long-running threshold must be positive")
	ErrInvalidAdmissibility    = errors.New("search admissibility must be one of: price, margin")
	ErrInvalidMaxTableCells    = errors.New("search max table cells must be positive")
	ErrInvalidRequestTimeout   = errors.New("search request timeout must be positive")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       DefaultServerPort,
		LogLevel:         DefaultLogLevel,
		ShutdownTimeout:  DefaultShutdownTimeout,
		MetricsEnabled:   DefaultMetricsEnabled,
		AuthMode:         DefaultAuthMode,
		Tolerance:        decimal.RequireFromString(DefaultTolerance),
		MaxItems:         DefaultMaxItems,
		LongRunningAfter: DefaultLongRunningAfter,
		Admissibility:    DefaultAdmissibility,
		GreedyFirst:      DefaultGreedyFirst,
		MaxTableCells:    DefaultMaxTableCells,
		RequestTimeout:   DefaultRequestTimeout,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	if err := c.loadSearchEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// loadSearchEnv loads the settings shared by every search session.
func (c *Config) loadSearchEnv() error {
	if val := os.Getenv(EnvTolerance); val != "" {
		tol, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTolerance, err)
		}
		c.Tolerance = tol
	}

	if val := os.Getenv(EnvMaxItems); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxItems, err)
		}
		c.MaxItems = n
	}

	if val := os.Getenv(EnvLongRunningAfter); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvLongRunningAfter, err)
		}
		c.LongRunningAfter = d
	}

	if val := os.Getenv(EnvAdmissibility); val != "" {
		c.Admissibility = val
	}

	if val := os.Getenv(EnvGreedyFirst); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvGreedyFirst, err)
		}
		c.GreedyFirst = enabled
	}

	if val := os.Getenv(EnvMaxTableCells); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxTableCells, err)
		}
		c.MaxTableCells = n
	}

	if val := os.Getenv(EnvRequestTimeout); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRequestTimeout, err)
		}
		c.RequestTimeout = d
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateSearch(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth checks the auth mode and that its credentials are present.
func (c *Config) validateAuth() error {
	switch c.authModeOrDefault() {
	case "none":
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

func (c *Config) validateSearch() error {
	if c.Tolerance.IsNegative() {
		return ErrInvalidTolerance
	}

	if c.MaxItems < 1 {
		return ErrInvalidMaxItems
	}

	if c.LongRunningAfter <= 0 {
		return ErrInvalidLongRunningAfter
	}

	if c.Admissibility != "price" && c.Admissibility != "margin" {
		return ErrInvalidAdmissibility
	}

	if c.MaxTableCells <= 0 {
		return ErrInvalidMaxTableCells
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
