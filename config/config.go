package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GatewayConfig configures the Authorize.Net integration.
// Mode "mock" replaces the REST client with an always-approve stub.
type GatewayConfig struct {
	Mode            string        `mapstructure:"mode"` // mock, rest
	Endpoint        string        `mapstructure:"endpoint"`
	APILoginID      string        `mapstructure:"api_login_id"`
	TransactionKey  string        `mapstructure:"transaction_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultCurrency string        `mapstructure:"default_currency"`
}

type SubscriptionConfig struct {
	RetryCron      string `mapstructure:"retry_cron"`
	AutoCancelDays int    `mapstructure:"auto_cancel_days"`
	Workers        int    `mapstructure:"workers"`
}

type WebhookConfig struct {
	QueueTopic   string        `mapstructure:"queue_topic"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	SweepCron    string        `mapstructure:"sweep_cron"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CARDFLOW_.
// Nested keys use underscore: CARDFLOW_DATABASE_HOST, CARDFLOW_GATEWAY_MODE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "cardflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("gateway.mode", "mock")
	v.SetDefault("gateway.endpoint", "https://apitest.authorize.net/xml/v1/request.api")
	v.SetDefault("gateway.api_login_id", "")
	v.SetDefault("gateway.transaction_key", "")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.default_currency", "USD")
	v.SetDefault("subscription.retry_cron", "*/5 * * * *")
	v.SetDefault("subscription.auto_cancel_days", 30)
	v.SetDefault("subscription.workers", 4)
	v.SetDefault("webhook.queue_topic", "webhook:events")
	v.SetDefault("webhook.stale_after", "5m")
	v.SetDefault("webhook.sweep_cron", "* * * * *")
	v.SetDefault("webhook.poll_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CARDFLOW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CARDFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
