package drivergo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/Temutjin2k/dispatch-ops/pkg/trm"
	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
	"github.com/google/uuid"
)

/*
Service provides the driver side of dispatch: the driver record,
availability (OFFLINE/ONLINE) and the last reported position.
ON_JOB is owned by the order lifecycle and never set here.
*/
type Service struct {
	repos     repos
	publisher Publisher
	trm       trm.TxManager
	now       func() time.Time
	l         logger.Logger
}

type repos struct {
	driver  DriverRepo
	earning EarningRepo
}

// New returns a new instance of the driver service with all dependencies injected.
func New(driverRepo DriverRepo, earningRepo EarningRepo, publisher Publisher, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		repos: repos{
			driver:  driverRepo,
			earning: earningRepo,
		},
		publisher: publisher,
		trm:       trm,
		now:       time.Now,
		l:         l,
	}
}

// Create registers a driver record. Credentials live with the auth provider.
func (s *Service) Create(ctx context.Context, in models.CreateDriverInput) (*models.Driver, error) {
	ctx = wrap.WithAction(ctx, "create_driver")

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)

	switch {
	case name == "":
		return nil, wrap.Error(ctx, types.Validation("name", "must be provided"))
	case phone == "":
		return nil, wrap.Error(ctx, types.Validation("phone", "must be provided"))
	case !validator.Matches(email, validator.EmailRX):
		return nil, wrap.Error(ctx, types.Validation("email", "must be a valid email address"))
	}

	now := s.now().UTC()
	driver := &models.Driver{
		ID:        uuid.New(),
		Name:      name,
		Phone:     phone,
		Email:     email,
		Status:    types.DriverOffline,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repos.driver.Create(ctx, driver); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create driver: %w", err))
	}

	s.l.Info(ctx, "driver created", "driver_id", driver.ID.String())
	return driver, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "get_driver"), id.String())

	if !models.IdentityFromContext(ctx).CanActAs(id) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}

	driver, err := s.repos.driver.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return driver, nil
}

func (s *Service) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, models.Metadata, error) {
	ctx = wrap.WithAction(ctx, "list_drivers")

	drivers, meta, err := s.repos.driver.List(ctx, filter)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, err)
	}
	return drivers, meta, nil
}

// SetActive flips the account gate. Disabling an ONLINE driver takes them
// OFFLINE in the same transaction; a driver on a job finishes it first.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Driver, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "set_driver_active"), id.String())

	now := s.now().UTC()

	var (
		driver *models.Driver
		old    types.DriverStatus
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		driver, err = s.repos.driver.SetActive(ctx, id, active, now)
		if err != nil {
			return err
		}
		old = driver.Status

		if !active && driver.Status == types.DriverOnline {
			driver, err = s.repos.driver.SwapStatus(ctx, id, types.DriverOnline, types.DriverOffline, false, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "driver account updated", "is_active", active)

	if old != driver.Status {
		s.statusChanged(ctx, driver, old)
	}
	return driver, nil
}

// SetStatus moves a driver between OFFLINE and ONLINE. Repeating the current
// status only refreshes lastActiveAt.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) (*models.Driver, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "set_driver_status"), id.String())

	if !models.IdentityFromContext(ctx).CanActAs(id) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}

	switch status {
	case types.DriverOffline, types.DriverOnline:
	case types.DriverOnJob:
		return nil, wrap.Error(ctx, types.ErrDriverStatusManual)
	default:
		return nil, wrap.Error(ctx, types.Validation("status", fmt.Sprintf("unknown driver status %q", status)))
	}

	current, err := s.repos.driver.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if current.Status == types.DriverOnJob {
		return nil, wrap.Error(ctx, types.ErrDriverOnJob)
	}
	if status == types.DriverOnline && !current.IsActive {
		return nil, wrap.Error(ctx, types.ErrAccountDisabled)
	}

	updated, err := s.repos.driver.SwapStatus(ctx, id, current.Status, status, status == types.DriverOnline, s.now().UTC())
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			s.l.Warn(ctx, "driver status changed concurrently")
		}
		return nil, wrap.Error(ctx, err)
	}

	if current.Status != updated.Status {
		s.l.Info(ctx, "driver status changed", "from", current.Status.String(), "to", updated.Status.String())
		s.statusChanged(ctx, updated, current.Status)
	}

	return updated, nil
}

// UpdateLocation stores the last reported position. It is independent of the
// driver status and counts as a heartbeat.
func (s *Service) UpdateLocation(ctx context.Context, id uuid.UUID, latitude, longitude float64) (*models.Driver, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "update_driver_location"), id.String())

	if !models.IdentityFromContext(ctx).CanActAs(id) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}

	switch {
	case !(latitude >= -90 && latitude <= 90):
		return nil, wrap.Error(ctx, types.Validation("latitude", "must be between -90 and 90"))
	case !(longitude >= -180 && longitude <= 180):
		return nil, wrap.Error(ctx, types.Validation("longitude", "must be between -180 and 180"))
	}

	driver, err := s.repos.driver.UpdateLocation(ctx, id, models.LocationUpdate{
		Latitude:  latitude,
		Longitude: longitude,
		At:        s.now().UTC(),
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Debug(ctx, "driver location updated")
	return driver, nil
}

// Earnings lists the immutable earning records of a driver.
func (s *Service) Earnings(ctx context.Context, id uuid.UUID, filters models.Filters) ([]models.Earning, models.Metadata, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, "list_driver_earnings"), id.String())

	if !models.IdentityFromContext(ctx).CanActAs(id) {
		return nil, models.Metadata{}, wrap.Error(ctx, types.ErrNotSelf)
	}

	if _, err := s.repos.driver.Get(ctx, id); err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, err)
	}

	earnings, meta, err := s.repos.earning.ListByDriver(ctx, id, filters)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, err)
	}
	return earnings, meta, nil
}

func (s *Service) statusChanged(ctx context.Context, d *models.Driver, old types.DriverStatus) {
	metrics.DriverStatusChangesTotal.WithLabelValues(d.Status.String()).Inc()

	if s.publisher == nil {
		return
	}

	event := models.NewEvent(types.EventDriverStatus, d.ID, s.now())
	event.Status = d.Status.String()
	event.OldStatus = old.String()
	event.RequestID = wrap.FromContext(ctx).RequestID

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish driver status", "error", err.Error())
	}
}
