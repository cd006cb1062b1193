package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/dispatch-ops/config"
	"github.com/Temutjin2k/dispatch-ops/internal/adapter/http/handler"
	httpserver "github.com/Temutjin2k/dispatch-ops/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/dispatch-ops/internal/adapter/http/ws"
	rabbitadapter "github.com/Temutjin2k/dispatch-ops/internal/adapter/rabbit"
	"github.com/Temutjin2k/dispatch-ops/internal/adapter/redis"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/rabbit"
	ws "github.com/Temutjin2k/dispatch-ops/pkg/wsHub"
)

var ErrServiceNotInitialized = errors.New("service not initialized")

// App is one dispatch instance: storage, services, the optional broker and
// cache, and the HTTP surface.
type App struct {
	storage  *Storage
	services *Services
	rabbit   *rabbit.RabbitMQ
	broker   *rabbitadapter.EventBroker
	cache    *redis.OverviewCache
	feed     *wshandler.ManagerFeed
	server   *httpserver.API

	cfg *config.Config
	log logger.Logger
}

// NewApplication
func NewApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	ctx = wrap.WithAction(ctx, "init_application")
	a := &App{cfg: cfg, log: log}

	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	a.storage, err = OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	health := map[string]handler.Pinger{"database": a.storage.Pinger}

	a.feed = wshandler.NewManagerFeed(ws.NewConnHub(log), cfg.ServiceName, cfg.WebSocket.AllowedOrigins, log)

	// Without a broker events go straight to this instance's managers.
	var publisher Publisher = a.feed
	if cfg.RabbitMQ.Enabled {
		a.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			return nil, err
		}
		a.broker = rabbitadapter.NewEventBroker(a.rabbit, cfg.RabbitMQ.Exchange, log)
		if err = a.broker.Setup(ctx); err != nil {
			return nil, fmt.Errorf("failed to declare exchange: %w", err)
		}
		publisher = a.broker
		health["rabbitmq"] = rabbitPinger{a.rabbit}
		log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitmq", "exchange", cfg.RabbitMQ.Exchange)
	}

	var cache OverviewCache
	if cfg.Redis.Enabled {
		a.cache, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = a.cache
		health["redis"] = a.cache
		log.Info(ctx, "connected to redis", "addr", cfg.Redis.Addr)
	}

	a.services, err = NewServices(ctx, cfg, a.storage, publisher, cache, log)
	if err != nil {
		return nil, err
	}

	a.server, err = httpserver.New(cfg, httpserver.Services{
		Orders:   a.services.Orders,
		Drivers:  a.services.Drivers,
		Issues:   a.services.Issues,
		Settings: a.services.Settings,
		Admin:    a.services.Admin,
		Auth:     a.services.Tokens,
		Feed:     a.feed,
		Health:   health,
	}, log)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Run serves until SIGINT/SIGTERM or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return ErrServiceNotInitialized
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.close(context.WithoutCancel(ctx))
		a.log.Info(ctx, "dispatch service closed")
	}()

	go a.services.Settings.Run(ctx, a.cfg.Settings.ReloadInterval)

	if a.broker != nil {
		go func() {
			if err := a.broker.Consume(ctx, a.feed.Publish, "#"); err != nil {
				a.log.Error(ctx, "event consumer stopped", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	a.server.Run(ctx, errCh)

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	a.log.Info(ctx, "service started")
	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			a.log.Error(ctx, "failed to shutdown HTTP server", err)
		}
	}
	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Error(ctx, "failed to close rabbitmq connection", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Error(ctx, "failed to close redis client", err)
		}
	}
	if a.storage != nil {
		a.storage.Close()
	}
}

type rabbitPinger struct{ r *rabbit.RabbitMQ }

func (p rabbitPinger) Ping(ctx context.Context) error {
	if p.r.IsConnectionClosed() {
		return errors.New("connection closed")
	}
	return nil
}
