package app

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/dispatch-ops/config"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/service/admin"
	"github.com/Temutjin2k/dispatch-ops/internal/service/auth"
	drivergo "github.com/Temutjin2k/dispatch-ops/internal/service/driver"
	"github.com/Temutjin2k/dispatch-ops/internal/service/issue"
	"github.com/Temutjin2k/dispatch-ops/internal/service/order"
	"github.com/Temutjin2k/dispatch-ops/internal/service/settings"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type OverviewCache = admin.OverviewCache

// Services holds the domain services of one instance.
type Services struct {
	Orders   *order.OrderService
	Drivers  *drivergo.Service
	Issues   *issue.IssueService
	Settings *settings.Service
	Admin    *admin.AdminService
	Tokens   *auth.TokenService
}

// NewServices wires the services over storage and loads the current
// settings. publisher and cache may be nil.
func NewServices(ctx context.Context, cfg *config.Config, s *Storage, publisher Publisher, cache OverviewCache, log logger.Logger) (*Services, error) {
	cfgSvc := settings.New(s.Settings, publisher, log)
	if _, err := cfgSvc.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &Services{
		Orders:   order.NewOrderService(s.Orders, s.Drivers, s.Earnings, cfgSvc, publisher, s.Tx, log),
		Drivers:  drivergo.New(s.Drivers, s.Earnings, publisher, s.Tx, log),
		Issues:   issue.NewIssueService(s.Issues, s.Orders, s.Drivers, publisher, log),
		Settings: cfgSvc,
		Admin:    admin.NewAdminService(s.Admin, cache, cfgSvc, log),
		Tokens:   auth.NewTokenService(cfg.Auth.JWTSecret, s.Drivers, cfg.Auth.AccessTokenTTL, log),
	}, nil
}
