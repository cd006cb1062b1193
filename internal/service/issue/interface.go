package issue

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

type IssueRepo interface {
	Create(ctx context.Context, issue *models.Issue) error
	Get(ctx context.Context, id uuid.UUID) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, models.Metadata, error)
	// SetStatus writes status and resolvedAt together.
	SetStatus(ctx context.Context, id uuid.UUID, status types.IssueStatus, resolvedAt *time.Time) (*models.Issue, error)
}

type OrderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type DriverGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
