package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the main struct that holds all configuration for the application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Site      SiteConfig      `mapstructure:"site"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// LoggerConfig holds logging-specific settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig holds HTTP server-specific settings.
type HTTPConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

// PostgresConfig holds all settings for the PostgreSQL database connection.
type PostgresConfig struct {
	DSN  string     `mapstructure:"dsn"`
	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig defines the connection pool settings for the database.
type PoolConfig struct {
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RabbitMQConfig holds all settings for the RabbitMQ connection.
type RabbitMQConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds all settings for the Redis connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SiteConfig describes the site whose URLs are submitted for recrawling.
type SiteConfig struct {
	// Host is the bare hostname of the site, e.g. "example.com".
	Host string `mapstructure:"host"`
}

// DispatchConfig tunes the dispatcher and the outbound HTTP discipline.
type DispatchConfig struct {
	// DelayWindow is the minimum interval between two pings for the same
	// (url, provider) pair. Zero disables local suppression.
	DelayWindow time.Duration `mapstructure:"delay_window"`
	// Concurrency bounds the per-event provider fan-out.
	Concurrency int64 `mapstructure:"concurrency"`
	// Timeout is the per-attempt connect+read timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int `mapstructure:"max_retries"`
	// BackoffBase is the delay before the first retry; it doubles per attempt.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BackoffCap limits the backoff growth.
	BackoffCap time.Duration `mapstructure:"backoff_cap"`
	// RequestsPerSecond paces all outbound pings globally. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// SweepInterval is the cadence of the throttle-backlog sweeper.
	// Zero disables the sweeper.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// WorkerCount is the size of the queue consumer pool.
	WorkerCount int `mapstructure:"worker_count"`
}

// ProvidersConfig holds per-provider settings and credentials.
type ProvidersConfig struct {
	// IndexNowProvider selects which IndexNow endpoint is active. Only one
	// IndexNow-family provider runs at a time; valid values are the family
	// slugs ("index-now", "yandex-index-now", ...). Empty disables the family.
	IndexNowProvider string `mapstructure:"index_now_provider"`

	IndexNow        IndexNowConfig        `mapstructure:"index_now"`
	YandexWebmaster YandexWebmasterConfig `mapstructure:"yandex_webmaster"`
	BingWebmaster   BingWebmasterConfig   `mapstructure:"bing_webmaster"`
	GoogleWebmaster GoogleWebmasterConfig `mapstructure:"google_webmaster"`
}

// IndexNowConfig holds the shared settings of the IndexNow protocol family.
type IndexNowConfig struct {
	// APIKey is the site ownership key, also served at /<key>.txt.
	APIKey string `mapstructure:"api_key"`
	// KeyLocation overrides the default https://<host>/<key>.txt location.
	KeyLocation string `mapstructure:"key_location"`
	// Endpoint overrides the variant's default API URL.
	Endpoint string `mapstructure:"endpoint"`
}

// YandexWebmasterConfig holds Yandex Webmaster API settings.
type YandexWebmasterConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Token    string `mapstructure:"token"`
	UserID   string `mapstructure:"user_id"`
	HostID   string `mapstructure:"host_id"`
	Endpoint string `mapstructure:"endpoint"`
}

// BingWebmasterConfig holds Bing Webmaster API settings.
type BingWebmasterConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	SiteURL  string `mapstructure:"site_url"`
	Endpoint string `mapstructure:"endpoint"`
}

// GoogleWebmasterConfig holds Google Indexing API settings.
type GoogleWebmasterConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Token is a pre-issued bearer token. When empty, the token is minted
	// from the service-account key below.
	Token string `mapstructure:"token"`
	// ServiceAccountJSON is the raw service-account key file contents.
	ServiceAccountJSON string `mapstructure:"service_account_json"`
	Endpoint           string `mapstructure:"endpoint"`
}

// NewConfig parses the YAML file and environment variables to return a configuration struct.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigFile("configs/config.yaml")

	v.SetDefault("logger.level", "info")
	v.SetDefault("http.port", ":8080")
	v.SetDefault("http.gin_mode", "release")
	v.SetDefault("dispatch.delay_window", 5*time.Minute)
	v.SetDefault("dispatch.concurrency", 4)
	v.SetDefault("dispatch.timeout", 10*time.Second)
	v.SetDefault("dispatch.max_retries", 2)
	v.SetDefault("dispatch.backoff_base", 500*time.Millisecond)
	v.SetDefault("dispatch.backoff_cap", 5*time.Second)
	v.SetDefault("dispatch.requests_per_second", 2.0)
	v.SetDefault("dispatch.sweep_interval", time.Minute)
	v.SetDefault("dispatch.worker_count", 5)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
