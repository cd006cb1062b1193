package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/config"
	"github.com/Temutjin2k/dispatch-ops/internal/adapter/http/handler"
	"github.com/Temutjin2k/dispatch-ops/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/dispatch-ops/internal/adapter/http/ws"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	cfg  config.HTTPConfig
	log  logger.Logger
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Orders   handler.OrderService
	Drivers  handler.DriverService
	Issues   handler.IssueService
	Settings handler.SettingsService
	Admin    handler.AdminService
	Auth     middleware.AuthService

	Feed   *wshandler.ManagerFeed
	Health map[string]handler.Pinger
}

type handlers struct {
	health   *handler.Health
	order    *handler.Order
	driver   *handler.Driver
	issue    *handler.Issue
	settings *handler.Settings
	admin    *handler.Admin
	feed     *wshandler.ManagerFeed
}

func New(cfg *config.Config, s Services, logger logger.Logger) (*API, error) {
	if s.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if s.Orders == nil || s.Drivers == nil || s.Issues == nil || s.Settings == nil || s.Admin == nil || s.Feed == nil {
		return nil, errors.New("every domain service is required")
	}

	routes := &handlers{
		health:   handler.NewHealth(cfg.ServiceName, s.Health, logger),
		order:    handler.NewOrder(s.Orders, logger),
		driver:   handler.NewDriver(s.Drivers, logger),
		issue:    handler.NewIssue(s.Issues, logger),
		settings: handler.NewSettings(s.Settings, logger),
		admin:    handler.NewAdmin(s.Admin, logger),
		feed:     s.Feed,
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(s.Auth, logger),
		addr:   cfg.HTTP.Addr(),
		cfg:    cfg.HTTP,
		log:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:         api.addr,
		Handler:      api.m.Chain(api.mux, cfg.ServiceName),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}

	return api, nil
}

// Handler returns the full middleware chain, used by tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	// hijacked websocket connections are not tracked by Shutdown
	a.routes.feed.Close()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}
