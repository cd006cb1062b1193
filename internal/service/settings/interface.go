package settings

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

type Repository interface {
	// Load returns the persisted keys and their version. An empty store has version 0.
	Load(ctx context.Context) (models.StoredSettings, error)
	// Replace writes all values in one transaction if the stored version still
	// equals expected, returning the new version. A version mismatch is
	// types.ErrSettingsChanged.
	Replace(ctx context.Context, expected int64, values map[string]string, at time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
