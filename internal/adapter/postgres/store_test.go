package repo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	repo "github.com/Temutjin2k/dispatch-ops/internal/adapter/postgres"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DISPATCH_TEST_POSTGRES_DSN points at a disposable database.
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DISPATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DISPATCH_TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := postgres.Migrate(ctx, pool, repo.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestSettingsReplace_Postgres(t *testing.T) {
	pool := newPool(t)
	settings := repo.NewSettingsRepo(pool)
	ctx := context.Background()

	stored, err := settings.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	v, err := settings.Replace(ctx, stored.Version, map[string]string{models.KeyBaseFee: "70"}, time.Now())
	if err != nil || v != stored.Version+1 {
		t.Fatalf("replace: v=%d err=%v", v, err)
	}
	if _, err := settings.Replace(ctx, stored.Version, map[string]string{models.KeyBaseFee: "80"}, time.Now()); !errors.Is(err, types.ErrConflict) {
		t.Fatalf("stale version must conflict, got %v", err)
	}

	again, err := settings.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again.Version != v || again.Values[models.KeyBaseFee] != "70" {
		t.Fatalf("unexpected stored settings %+v", again)
	}
}

func TestOrderSwap_Postgres(t *testing.T) {
	pool := newPool(t)
	orders := repo.NewOrderRepo(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	o := &models.Order{
		ID:              uuid.New(),
		CustomerName:    "Aigerim",
		DeliveryAddress: "Abay 10",
		OrderValue:      1200,
		DistanceKm:      3,
		Status:          types.OrderCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := orders.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := orders.Swap(ctx, models.OrderSwap{ID: o.ID, From: types.OrderCreated, To: types.OrderCancelled, UpdatedAt: now})
	if err != nil || got.Status != types.OrderCancelled {
		t.Fatalf("swap: %+v %v", got, err)
	}
	if _, err := orders.Swap(ctx, models.OrderSwap{ID: o.ID, From: types.OrderCreated, To: types.OrderCancelled, UpdatedAt: now}); !errors.Is(err, types.ErrOrderChanged) {
		t.Fatalf("second swap must see the change, got %v", err)
	}
	if _, err := orders.Swap(ctx, models.OrderSwap{ID: uuid.New(), From: types.OrderCreated, To: types.OrderCancelled, UpdatedAt: now}); !errors.Is(err, types.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
