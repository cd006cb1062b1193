package admin

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

type AdminRepository interface {
	// GetReportData reads the raw counts plus every order created, delivered
	// or cancelled inside the window. The read is not synchronized with writers.
	GetReportData(ctx context.Context, window models.Window) (*models.ReportData, error)
}

// OverviewCache keeps computed overviews for a short time.
type OverviewCache interface {
	GetOverview(ctx context.Context, key string) (*models.OverviewResponse, bool, error)
	SetOverview(ctx context.Context, key string, overview *models.OverviewResponse, ttl time.Duration) error
}

type SettingsProvider interface {
	Current() models.SettingsSnapshot
}
