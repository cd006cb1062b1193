package settings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/google/uuid"
)

// Service holds the active settings snapshot. Readers always see one complete
// snapshot; an update swaps the pointer once the store has committed.
type Service struct {
	repo      Repository
	publisher Publisher
	current   atomic.Pointer[models.SettingsSnapshot]
	now       func() time.Time
	l         logger.Logger
}

func New(repo Repository, publisher Publisher, l logger.Logger) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		l:         l,
	}
	s.current.Store(&models.SettingsSnapshot{Settings: models.DefaultSettings()})
	return s
}

// Current returns the active snapshot. Before the first Load it is the defaults at version 0.
func (s *Service) Current() models.SettingsSnapshot {
	return *s.current.Load()
}

// Load reads the persisted values, normalizes them over the defaults and
// makes them active.
func (s *Service) Load(ctx context.Context) (models.SettingsSnapshot, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return models.SettingsSnapshot{}, wrap.Error(ctx, fmt.Errorf("failed to load settings: %w", err))
	}

	snap := &models.SettingsSnapshot{
		Version:   stored.Version,
		Settings:  Normalize(FromStored(stored.Values), models.DefaultSettings()),
		UpdatedAt: s.now().UTC(),
	}
	s.swap(snap)

	return *snap, nil
}

// Update merges a partial input over the active snapshot and persists the
// full result. If another writer committed first the active snapshot is
// reloaded and types.ErrSettingsChanged is returned; the caller decides
// whether to retry.
func (s *Service) Update(ctx context.Context, partial map[string]any) (models.SettingsSnapshot, error) {
	ctx = wrap.WithAction(ctx, "settings_update")

	for key := range partial {
		if !IsKnownKey(key) {
			return models.SettingsSnapshot{}, wrap.Error(ctx, types.Validation(key, "unknown setting"))
		}
	}

	base := s.Current()
	next := Normalize(partial, base.Settings)
	at := s.now().UTC()

	version, err := s.repo.Replace(ctx, base.Version, ToStored(next), at)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			if _, loadErr := s.Load(ctx); loadErr != nil {
				s.l.Warn(ctx, "failed to reload settings after conflict", "error", loadErr.Error())
			}
		}
		return models.SettingsSnapshot{}, wrap.Error(ctx, err)
	}

	snap := &models.SettingsSnapshot{
		Version:   version,
		Settings:  next,
		UpdatedAt: at,
	}
	s.swap(snap)

	s.l.Info(ctx, "settings updated", "version", version)

	if s.publisher != nil {
		event := models.NewEvent(types.EventSettingsUpdated, uuid.Nil, at)
		event.Status = fmt.Sprintf("v%d", version)
		event.RequestID = wrap.FromContext(ctx).RequestID
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.l.Warn(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish settings event", "error", err.Error())
		}
	}

	return *snap, nil
}

// Run reloads the settings every interval until ctx is done so that updates
// made by other instances become visible.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx = wrap.WithAction(ctx, types.ActionSettingsReload)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Load(ctx); err != nil {
				s.l.Warn(ctx, "settings reload failed", "error", err.Error())
			}
		}
	}
}

// swap never replaces a snapshot with an older version.
func (s *Service) swap(next *models.SettingsSnapshot) {
	for {
		cur := s.current.Load()
		if cur != nil && cur.Version > next.Version {
			return
		}
		if s.current.CompareAndSwap(cur, next) {
			metrics.SettingsVersion.Set(float64(next.Version))
			return
		}
	}
}
