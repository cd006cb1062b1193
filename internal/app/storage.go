package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Temutjin2k/dispatch-ops/config"
	"github.com/Temutjin2k/dispatch-ops/internal/adapter/http/handler"
	repo "github.com/Temutjin2k/dispatch-ops/internal/adapter/postgres"
	literepo "github.com/Temutjin2k/dispatch-ops/internal/adapter/sqlite"
	"github.com/Temutjin2k/dispatch-ops/internal/service/admin"
	drivergo "github.com/Temutjin2k/dispatch-ops/internal/service/driver"
	"github.com/Temutjin2k/dispatch-ops/internal/service/issue"
	"github.com/Temutjin2k/dispatch-ops/internal/service/order"
	"github.com/Temutjin2k/dispatch-ops/internal/service/settings"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	postgresclient "github.com/Temutjin2k/dispatch-ops/pkg/postgres"
	"github.com/Temutjin2k/dispatch-ops/pkg/sqlite"
	"github.com/Temutjin2k/dispatch-ops/pkg/trm"
)

type (
	orderStore interface {
		order.OrderRepo
	}
	driverStore interface {
		drivergo.DriverRepo
		order.DriverRepo
	}
	earningStore interface {
		drivergo.EarningRepo
		order.EarningRepo
	}
)

// Storage is one of the two backends behind the same repository contracts.
type Storage struct {
	Orders   orderStore
	Drivers  driverStore
	Earnings earningStore
	Issues   issue.IssueRepo
	Settings settings.Repository
	Admin    admin.AdminRepository
	Tx       trm.TxManager

	Driver string
	Pinger handler.Pinger

	close func()
}

// OpenStorage connects to the configured backend. Postgres schemas are
// applied by the migrate command, the embedded backend migrates on open.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*Storage, error) {
	ctx = wrap.WithAction(ctx, "open_storage")

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgresclient.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		tx := trm.New(pool)

		log.Info(ctx, "connected to postgres", "host", cfg.Host, "database", cfg.Database)
		return &Storage{
			Orders:   repo.NewOrderRepo(pool),
			Drivers:  repo.NewDriverRepo(pool),
			Earnings: repo.NewEarningRepo(pool),
			Issues:   repo.NewIssueRepo(pool),
			Settings: repo.NewSettingsRepo(pool),
			Admin:    repo.NewAdminRepo(pool, tx),
			Tx:       tx,
			Driver:   cfg.Driver,
			Pinger:   pool,
			close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, literepo.Migrations())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		log.Info(ctx, "opened sqlite database", "path", cfg.SQLitePath)
		return &Storage{
			Orders:   literepo.NewOrderRepo(db),
			Drivers:  literepo.NewDriverRepo(db),
			Earnings: literepo.NewEarningRepo(db),
			Issues:   literepo.NewIssueRepo(db),
			Settings: literepo.NewSettingsRepo(db),
			Admin:    literepo.NewAdminRepo(db),
			Tx:       trm.NewSQL(db),
			Driver:   cfg.Driver,
			Pinger:   sqlPinger{db},
			close:    func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate applies the pending schema migrations and returns their versions.
func Migrate(ctx context.Context, cfg config.DatabaseConfig) ([]int, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgresclient.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()
		return postgresclient.Migrate(ctx, pool, repo.Migrations())

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		defer db.Close()
		return sqlite.Migrate(db, literepo.Migrations())

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
