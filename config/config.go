package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// DetectorConfig carries the due-detection tunables. The windows are
// empirical defaults, not hard law.
type DetectorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// GraceWindow bounds how long after a slot a reminder may still be
	// freshly created, so a late detector pass does not alarm hours late.
	GraceWindow time.Duration `mapstructure:"grace_window"`
	// DoseTolerance is the +/- window around a slot within which an existing
	// dose record counts as satisfying it.
	DoseTolerance time.Duration `mapstructure:"dose_tolerance"`
}

// ChannelCadence is a base/floor pair: emission interval is
// max(floor, base/level), so cadence tightens as the level rises but never
// drops below the floor.
type ChannelCadence struct {
	Base  time.Duration `mapstructure:"base"`
	Floor time.Duration `mapstructure:"floor"`
}

type EscalationConfig struct {
	// LevelInterval is how often an unresolved session climbs one level.
	LevelInterval time.Duration `mapstructure:"level_interval"`
	MaxLevel      int           `mapstructure:"max_level"`
	// AutoResolveAfter force-resolves a session that has been active this
	// long. Zero keeps the source behavior: nag until acknowledged.
	AutoResolveAfter time.Duration `mapstructure:"auto_resolve_after"`
	DismissCooldown  time.Duration `mapstructure:"dismiss_cooldown"`
	// NotifyMinSpacing is the hard minimum between two system notifications
	// for one session, regardless of level.
	NotifyMinSpacing time.Duration  `mapstructure:"notify_min_spacing"`
	Sound            ChannelCadence `mapstructure:"sound"`
	Haptic           ChannelCadence `mapstructure:"haptic"`
	Flash            ChannelCadence `mapstructure:"flash"`
	Notify           ChannelCadence `mapstructure:"notify"`
}

type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port      int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username  string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password  string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From      string `mapstructure:"from"`
	Caregiver string `mapstructure:"caregiver"`
}

type DispatcherConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Email      EmailConfig      `mapstructure:"email"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	LogLevel   string           `mapstructure:"log_level" envconfig:"LOG_LEVEL"`
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1<<20)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "reminderd")
	viper.SetDefault("database.name", "reminderd")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)

	viper.SetDefault("detector.poll_interval", 15*time.Second)
	viper.SetDefault("detector.grace_window", 5*time.Minute)
	viper.SetDefault("detector.dose_tolerance", 30*time.Minute)

	viper.SetDefault("escalation.level_interval", 20*time.Second)
	viper.SetDefault("escalation.max_level", 5)
	viper.SetDefault("escalation.auto_resolve_after", time.Duration(0))
	viper.SetDefault("escalation.dismiss_cooldown", 20*time.Second)
	viper.SetDefault("escalation.notify_min_spacing", 5*time.Second)
	viper.SetDefault("escalation.sound.base", 2500*time.Millisecond)
	viper.SetDefault("escalation.sound.floor", 800*time.Millisecond)
	viper.SetDefault("escalation.haptic.base", 2000*time.Millisecond)
	viper.SetDefault("escalation.haptic.floor", 500*time.Millisecond)
	viper.SetDefault("escalation.flash.base", 800*time.Millisecond)
	viper.SetDefault("escalation.flash.floor", 300*time.Millisecond)
	viper.SetDefault("escalation.notify.base", 8*time.Second)
	viper.SetDefault("escalation.notify.floor", 5*time.Second)

	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.port", 587)

	viper.SetDefault("dispatcher.batch_size", 100)
	viper.SetDefault("dispatcher.poll_interval", time.Second)
	viper.SetDefault("dispatcher.retry_attempts", 3)
	viper.SetDefault("dispatcher.retry_delay", 5*time.Second)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)

	viper.SetDefault("log_level", "info")
}

// LoadConfig reads config.yaml (current dir or ./config), then applies
// environment overrides. A missing file is not an error: defaults plus
// environment are enough to run.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}

	return &cfg, nil
}

// Interval returns the emission interval for the given level.
func (c ChannelCadence) Interval(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	interval := c.Base / time.Duration(level)
	if interval < c.Floor {
		return c.Floor
	}
	return interval
}
