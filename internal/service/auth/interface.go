package auth

import (
	"context"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/google/uuid"
)

type DriverGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
}
