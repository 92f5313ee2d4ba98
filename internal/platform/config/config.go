// Package config loads runtime configuration from an optional YAML file and
// FREIGHTDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Internal    InternalConfig    `mapstructure:"internal"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins       []string      `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	TxTimeout    time.Duration `mapstructure:"tx_timeout"`
}

// RedisConfig is optional. An empty URL keeps token revocation in memory.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig is optional. With no brokers the audit outbox is not written.
type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	Topic             string        `mapstructure:"topic"`
	Partitions        int32         `mapstructure:"partitions"`
	ReplicationFactor int16         `mapstructure:"replication_factor"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	BatchSize         int           `mapstructure:"batch_size"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type AuthConfig struct {
	HS256Secret       string        `mapstructure:"hs256_secret"`
	RS256PublicKeyPEM string        `mapstructure:"rs256_public_key"`
	Issuer            string        `mapstructure:"issuer"`
	Audience          string        `mapstructure:"audience"`
	OrgClaim          string        `mapstructure:"org_claim"`
	Leeway            time.Duration `mapstructure:"leeway"`
}

type WebhookConfig struct {
	SigningSecret string        `mapstructure:"signing_secret"`
	Tolerance     time.Duration `mapstructure:"tolerance"`
}

// InternalConfig guards system routes. ServiceKeyHash is a bcrypt hash; an
// empty hash disables the routes.
type InternalConfig struct {
	ServiceKeyHash string `mapstructure:"service_key_hash"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type MaintenanceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var knownDrivers = map[string]bool{"sqlite": true, "pgx": true, "postgres": true}

// Load reads path when given, then overlays environment variables such as
// FREIGHTDESK_DATABASE_DSN. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FREIGHTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("freightdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/freightdesk/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:freightdesk.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.tx_timeout", 5*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "freightdesk.audit")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.poll_interval", time.Second)
	v.SetDefault("kafka.batch_size", 100)

	v.SetDefault("auth.hs256_secret", "")
	v.SetDefault("auth.rs256_public_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.org_claim", "org_id")
	v.SetDefault("auth.leeway", 30*time.Second)

	v.SetDefault("webhook.signing_secret", "")
	v.SetDefault("webhook.tolerance", 5*time.Minute)

	v.SetDefault("internal.service_key_hash", "")

	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("maintenance.enabled", false)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Auth.HS256Secret == "" && strings.TrimSpace(c.Auth.RS256PublicKeyPEM) == "" {
		return errors.New("config: auth.hs256_secret or auth.rs256_public_key is required")
	}
	if c.Auth.HS256Secret != "" && len(c.Auth.HS256Secret) < 32 {
		return errors.New("config: auth.hs256_secret must be at least 32 bytes")
	}
	if !knownDrivers[c.Database.Driver] {
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("config: kafka.topic is required when brokers are set")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("config: ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}
