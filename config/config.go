package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPrefix is prepended to every environment override, e.g. DISPATCH_DATABASE_HOST.
const EnvPrefix = "DISPATCH"

// Config contains all configuration variables of the application
type (
	Config struct {
		ServiceName string `mapstructure:"service_name"`

		HTTP      HTTPConfig      `mapstructure:"http"`
		Log       LogConfig       `mapstructure:"log"`
		Database  DatabaseConfig  `mapstructure:"database"`
		RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
		Redis     RedisConfig     `mapstructure:"redis"`
		WebSocket WebSocketConfig `mapstructure:"websocket"`
		Auth      AuthConfig      `mapstructure:"auth"`
		Settings  SettingsConfig  `mapstructure:"settings"`
	}

	HTTPConfig struct {
		Host            string        `mapstructure:"host"`
		Port            string        `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	}

	LogConfig struct {
		Level string `mapstructure:"level"`
	}

	DatabaseConfig struct {
		Driver string `mapstructure:"driver"` // postgres | sqlite

		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Database string `mapstructure:"database"`
		SSLMode  string `mapstructure:"sslmode"`

		MaxConns        int32         `mapstructure:"max_conns"`         // максимум открытых соединений
		MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // макс. "время жизни" соединения

		SQLitePath string `mapstructure:"sqlite_path"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Exchange string `mapstructure:"exchange"`
	}

	RedisConfig struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	WebSocketConfig struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}

	AuthConfig struct {
		JWTSecret      string        `mapstructure:"jwt_secret"`
		AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	}

	SettingsConfig struct {
		ReloadInterval time.Duration `mapstructure:"reload_interval"`
	}
)

var defaults = map[string]any{
	"service_name": "dispatch",

	"http.host":             "0.0.0.0",
	"http.port":             "8080",
	"http.read_timeout":     "10s",
	"http.write_timeout":    "15s",
	"http.idle_timeout":     "60s",
	"http.shutdown_timeout": "5s",

	"log.level": logger.LevelInfo,

	"database.driver":            DriverPostgres,
	"database.host":              "localhost",
	"database.port":              "5432",
	"database.user":              "dispatch_user",
	"database.password":          "dispatch_pass",
	"database.database":          "dispatch_db",
	"database.sslmode":           "disable",
	"database.max_conns":         20,
	"database.max_conn_lifetime": "30m",
	"database.sqlite_path":       "dispatch.db",

	"rabbitmq.enabled":  false,
	"rabbitmq.host":     "localhost",
	"rabbitmq.port":     "5672",
	"rabbitmq.user":     "guest",
	"rabbitmq.password": "guest",
	"rabbitmq.exchange": "dispatch_topic",

	"redis.enabled":  false,
	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"websocket.allowed_origins": []string{},

	"auth.jwt_secret":       "",
	"auth.access_token_ttl": "12h",

	"settings.reload_interval": "30s",
}

// NewConfig reads the YAML file at path (optional) and applies environment
// overrides on top of the defaults.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	c.Log.Level = strings.ToUpper(c.Log.Level)
	c.Database.Driver = strings.ToLower(c.Database.Driver)

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl: must be positive"))
	}

	return errors.Join(errs...)
}

// RequireAuth is checked by commands that sign or verify tokens.
func (c *Config) RequireAuth() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret: must be at least 16 characters")
	}
	return nil
}

func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

func (c DatabaseConfig) GetMaxConns() int32 {
	return c.MaxConns
}

func (c DatabaseConfig) GetConnLifetime() time.Duration {
	return c.MaxConnLifetime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c RedisConfig) GetAddr() string {
	return c.Addr
}

func (c RedisConfig) GetPassword() string {
	return c.Password
}

func (c RedisConfig) GetDB() int {
	return c.DB
}
