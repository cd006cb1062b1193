package order

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

// OrderRepo persists orders. Swap is a compare-and-set: it returns
// types.ErrOrderNotFound when the row is absent and types.ErrOrderChanged when
// the row exists but no longer matches the expected state.
type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, models.Metadata, error)
	Swap(ctx context.Context, swap models.OrderSwap) (*models.Order, error)
}

// DriverRepo is the slice of driver storage the order lifecycle needs.
// SwapStatus returns types.ErrDriverChanged when the driver is not in status
// from (or is inactive while requireActive is set).
type DriverRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SwapStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus, requireActive bool, at time.Time) (*models.Driver, error)
	ListAvailable(ctx context.Context, limit int) ([]models.Driver, error)
}

type EarningRepo interface {
	Create(ctx context.Context, earning *models.Earning) error
}

type SettingsProvider interface {
	Current() models.SettingsSnapshot
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
