package config

import (
	"context"

	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
)

const masked = "******"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// PrintConfig logs the effective configuration with secrets masked.
func PrintConfig(ctx context.Context, l logger.Logger, c *Config) {
	ctx = wrap.WithAction(ctx, "print_config")

	l.Info(ctx, "configuration loaded",
		"service_name", c.ServiceName,
		"http_addr", c.HTTP.Addr(),
		"log_level", c.Log.Level,
		"database_driver", c.Database.Driver,
		"database_host", c.Database.Host,
		"database_name", c.Database.Database,
		"database_user", c.Database.User,
		"database_password", mask(c.Database.Password),
		"sqlite_path", c.Database.SQLitePath,
		"rabbitmq_enabled", c.RabbitMQ.Enabled,
		"rabbitmq_host", c.RabbitMQ.Host,
		"rabbitmq_password", mask(c.RabbitMQ.Password),
		"rabbitmq_exchange", c.RabbitMQ.Exchange,
		"redis_enabled", c.Redis.Enabled,
		"redis_addr", c.Redis.Addr,
		"redis_password", mask(c.Redis.Password),
		"jwt_secret", mask(c.Auth.JWTSecret),
		"access_token_ttl", c.Auth.AccessTokenTTL.String(),
		"settings_reload_interval", c.Settings.ReloadInterval.String(),
	)
}
