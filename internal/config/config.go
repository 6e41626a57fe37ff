package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Connections   ConnectionsConfig   `mapstructure:"connections"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name           string `mapstructure:"name"`
	Env            string `mapstructure:"env"`
	Port           string `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ConnectionsConfig struct {
	SendCooldown time.Duration `mapstructure:"send_cooldown"`
}

type NotificationsConfig struct {
	Window              int             `mapstructure:"window"`
	OrderedQueryTimeout time.Duration   `mapstructure:"ordered_query_timeout"`
	Retention           RetentionConfig `mapstructure:"retention"`
}

type RetentionConfig struct {
	ReadTTL  time.Duration `mapstructure:"read_ttl"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Schedule string        `mapstructure:"schedule"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load reads .env, then config.yaml from ./configs or the working directory,
// then environment variables (APP_PORT, DATABASE_HOST, ...).
func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	applyDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mentorconnect")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.allowed_origins", "http://localhost:3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "mentorconnect")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("connections.send_cooldown", "5s")

	v.SetDefault("notifications.window", 50)
	v.SetDefault("notifications.ordered_query_timeout", "2s")
	v.SetDefault("notifications.retention.read_ttl", "720h")
	v.SetDefault("notifications.retention.max_age", "8760h")
	v.SetDefault("notifications.retention.schedule", "@every 12h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "mentorconnect")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.otlp_insecure", true)
}

func validate(cfg *Config) error {
	if cfg.App.Port == "" {
		return errors.New("app.port is required")
	}
	if cfg.Auth.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return errors.New("auth.jwt_secret is required outside development")
		}
		cfg.Auth.JWTSecret = "12345"
	}
	if cfg.Notifications.Window <= 0 {
		return fmt.Errorf("notifications.window must be positive, got %d", cfg.Notifications.Window)
	}
	if cfg.Connections.SendCooldown < 0 {
		return errors.New("connections.send_cooldown must not be negative")
	}
	if cfg.Notifications.Retention.ReadTTL < 0 || cfg.Notifications.Retention.MaxAge < 0 {
		return errors.New("notifications.retention durations must not be negative")
	}
	return nil
}
