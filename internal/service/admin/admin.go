package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
)

type AdminService struct {
	adminRepo AdminRepository
	cache     OverviewCache
	settings  SettingsProvider
	now       func() time.Time
	l         logger.Logger
}

// NewAdminService builds the reporting service. cache may be nil.
func NewAdminService(adminRepo AdminRepository, cache OverviewCache, settings SettingsProvider, l logger.Logger) *AdminService {
	return &AdminService{
		adminRepo: adminRepo,
		cache:     cache,
		settings:  settings,
		now:       time.Now,
		l:         l,
	}
}

// overviewKey changes with the day and with every settings update.
func overviewKey(day time.Time, version int64) string {
	return fmt.Sprintf("overview:%s:v%d", day.Format(time.DateOnly), version)
}

// GetOverview returns today's fleet and financial summary. A cached overview
// is served for up to refreshSeconds.
func (s *AdminService) GetOverview(ctx context.Context) (*models.OverviewResponse, error) {
	ctx = wrap.WithAction(ctx, "get_overview")

	snap := s.settings.Current()
	window := TodayWindow(s.now())
	key := overviewKey(window.Start, snap.Version)

	if s.cache != nil {
		cached, ok, err := s.cache.GetOverview(ctx, key)
		switch {
		case err != nil:
			metrics.OverviewCacheTotal.WithLabelValues("error").Inc()
			s.l.Warn(ctx, "overview cache read failed", "error", err.Error())
		case ok:
			metrics.OverviewCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.OverviewCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	data, err := s.adminRepo.GetReportData(ctx, window)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to read report data: %w", err))
	}

	overview := Aggregate(data, window, snap.Version)

	for status, n := range overview.DriverDistribution {
		metrics.DriversByStatus.WithLabelValues(status).Set(float64(n))
	}

	if s.cache != nil {
		ttl := time.Duration(snap.Settings.RefreshSeconds) * time.Second
		if err := s.cache.SetOverview(ctx, key, overview, ttl); err != nil {
			s.l.Warn(ctx, "overview cache write failed", "error", err.Error())
		}
	}

	return overview, nil
}
