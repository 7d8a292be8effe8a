package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"walrusweb/pkg/store"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	envPrefix = "walrus"
)

// Config holds all application configuration values. Every variable can be
// set as WALRUS_<NAME>. Variables with an explicit envconfig tag also fall
// back to the unprefixed name (PORT, NODE_ENV, ADMIN_PASSWORD, ...).
type Config struct {
	Environment     string        `yaml:"environment"     envconfig:"NODE_ENV"`
	BindAddr        string        `yaml:"bindAddr"                                  split_words:"true"`
	Port            uint          `yaml:"port"            envconfig:"PORT"`
	OperatorSecret  string        `yaml:"operatorSecret"  envconfig:"ADMIN_PASSWORD"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"  envconfig:"ALLOWED_ORIGINS"`
	TrustedProxies  []string      `yaml:"trustedProxies"  envconfig:"TRUSTED_PROXIES"`
	StorageDriver   string        `yaml:"storageDriver"                             split_words:"true"`
	DataDir         string        `yaml:"dataDir"         envconfig:"DATA_DIR"`
	DatabaseDSN     string        `yaml:"databaseDsn"     envconfig:"DATABASE_URL"`
	RedisAddr       string        `yaml:"redisAddr"       envconfig:"REDIS_ADDR"`
	RateLimitMax    int           `yaml:"rateLimitMax"                              split_words:"true"`
	RateLimitWindow time.Duration `yaml:"rateLimitWindow"                           split_words:"true"`
	DistDir         string        `yaml:"distDir"         envconfig:"DIST_DIR"`
	PublicBaseURL   string        `yaml:"publicBaseUrl"   envconfig:"PUBLIC_BASE_URL"`
	ShortIOAPIKey   string        `yaml:"shortioApiKey"   envconfig:"SHORTIO_API_KEY"`
	ShortIODomain   string        `yaml:"shortioDomain"   envconfig:"SHORTIO_DOMAIN"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"                           split_words:"true"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Environment:     EnvDevelopment,
		BindAddr:        "0.0.0.0",
		Port:            3000,
		AllowedOrigins:  []string{"http://localhost:5173"},
		StorageDriver:   store.DriverBadger,
		DataDir:         "data",
		RateLimitMax:    100,
		RateLimitWindow: 15 * time.Minute,
		DistDir:         "dist",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional YAML file, a
// .env file in the working directory and the environment, in that order
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Variables already in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.AllowedOrigins = trimList(c.AllowedOrigins)
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = Default().AllowedOrigins
	}
	c.TrustedProxies = trimList(c.TrustedProxies)
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Environment == "" {
		errs = append(errs, errors.New("environment must not be empty"))
	}
	if c.Port == 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if !slices.Contains(store.Drivers(), c.StorageDriver) {
		errs = append(
			errs,
			fmt.Errorf(
				"unknown storage driver %q, expected one of: %s",
				c.StorageDriver,
				strings.Join(store.Drivers(), ", "),
			),
		)
	}
	switch c.StorageDriver {
	case store.DriverPostgres, store.DriverMysql:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("storage driver %s requires a database DSN", c.StorageDriver))
		}
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, fmt.Errorf("rate limit max must be positive, got %d", c.RateLimitMax))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate limit window must be positive, got %s", c.RateLimitWindow))
	}
	if (c.ShortIOAPIKey == "") != (c.ShortIODomain == "") {
		errs = append(errs, errors.New("short.io API key and domain must be set together"))
	}
	if c.ShortIOAPIKey != "" && c.PublicBaseURL == "" {
		errs = append(errs, errors.New("short links require a public base URL"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ListenAddr is the host:port the HTTP server listens on
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// ShortLinksEnabled reports whether new pitches get a short link
func (c *Config) ShortLinksEnabled() bool {
	return c.ShortIOAPIKey != "" && c.ShortIODomain != ""
}

func trimList(items []string) []string {
	var ret []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
