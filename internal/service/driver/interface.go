package drivergo

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

/*=================Driver Repository======================*/

type DriverRepo interface {
	Create(ctx context.Context, driver *models.Driver) error
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, models.Metadata, error)
	// SwapStatus returns types.ErrDriverChanged when the driver is no longer in status from.
	SwapStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus, requireActive bool, at time.Time) (*models.Driver, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (*models.Driver, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, loc models.LocationUpdate) (*models.Driver, error)
}

/*=================Earning Repository=====================*/

type EarningRepo interface {
	ListByDriver(ctx context.Context, driverID uuid.UUID, filters models.Filters) ([]models.Earning, models.Metadata, error)
}

/*=================Event Publisher========================*/

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
