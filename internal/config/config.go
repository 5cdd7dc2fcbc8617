package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

const (
	RepositoryMemory   = "memory"
	RepositoryPostgres = "postgres"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	Repository     string `toml:"repository"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	RunMigrations  bool   `toml:"run_migrations"`
	OutboxDir      string `toml:"outbox_dir"`

	// redis: auth sessions and rate limiting
	RedisHost                    string `toml:"redis_host"`
	RedisPort                    string `toml:"redis_port"`
	SignInRateLimitAllowedPerMin int    `toml:"sign_in_rate_limit_allowed_per_min"`
	SessionTTL                   string `toml:"session_ttl"`

	// workout
	RestSeconds int `toml:"rest_seconds"`

	// catalog cache
	CatalogCacheSizeMB     int `toml:"catalog_cache_size_mb"`
	CatalogCacheTTLSeconds int `toml:"catalog_cache_ttl_seconds"`

	// kafka
	KafkaEnabled     bool     `toml:"kafka_enabled"`
	KafkaBrokers     []string `toml:"kafka_brokers"`
	KafkaTopicPrefix string   `toml:"kafka_topic_prefix"`

	// google sheets
	SheetsEnabled       bool   `toml:"sheets_enabled"`
	SheetsSpreadsheetID string `toml:"sheets_spreadsheet_id"`

	AllowedOrigins []string `toml:"allowed_origins"`

	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the config for env, with defaults
// applied to all unset values.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return t.load(env)
}

// Parse is Load for a config already in memory.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return t.load(env)
}

func (t *Toml) load(env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Repository == "" {
		c.Repository = RepositoryPostgres
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.SignInRateLimitAllowedPerMin == 0 {
		c.SignInRateLimitAllowedPerMin = 10
	}
	if c.SessionTTL == "" {
		c.SessionTTL = "168h"
	}
	if c.RestSeconds == 0 {
		c.RestSeconds = 90
	}
	if c.CatalogCacheSizeMB == 0 {
		c.CatalogCacheSizeMB = 10
	}
	if c.CatalogCacheTTLSeconds == 0 {
		c.CatalogCacheTTLSeconds = 300
	}
	if c.KafkaTopicPrefix == "" {
		c.KafkaTopicPrefix = "dailyfit.workout"
	}
	if c.OutboxDir == "" {
		c.OutboxDir = "./data/outbox"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) validate() error {
	switch c.Repository {
	case RepositoryMemory, RepositoryPostgres:
	default:
		return fmt.Errorf("unknown repository backend: %s", c.Repository)
	}
	if _, err := c.SessionTTLDuration(); err != nil {
		return fmt.Errorf("invalid session_ttl: %w", err)
	}
	if c.RestSeconds < 0 {
		return fmt.Errorf("rest_seconds must not be negative, got %d", c.RestSeconds)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka enabled, but no brokers set")
	}
	if c.SheetsEnabled && c.SheetsSpreadsheetID == "" {
		return fmt.Errorf("sheets enabled, but no spreadsheet id set")
	}
	return nil
}

func (c *Config) SessionTTLDuration() (time.Duration, error) {
	return time.ParseDuration(c.SessionTTL)
}

// Secrets are never kept in the config file.
type Secrets struct {
	JWTSecret             string `env:"DAILYFIT_JWT_SECRET, required"`
	PostgresPassword      string `env:"DAILYFIT_POSTGRES_PASS"`
	RedisPassword         string `env:"DAILYFIT_REDIS_PASS"`
	SentryDSN             string `env:"SENTRY_DSN"`
	HoneycombEnabled      bool   `env:"HONEYCOMB_ENABLED, default=false"`
	HoneycombAPIKey       string `env:"HONEYCOMB_API_KEY"`
	OtelServiceName       string `env:"OTEL_SERVICE_NAME, default=dailyfit-backend"`
	SheetsCredentialsPath string `env:"DAILYFIT_SHEETS_CREDENTIALS"`
	MCPSecret             string `env:"DAILYFIT_MCP_SECRET"`
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	return LoadSecretsWith(ctx, envconfig.OsLookuper())
}

func LoadSecretsWith(ctx context.Context, lookuper envconfig.Lookuper) (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &secrets,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &secrets, nil
}
