package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/internal/service/fee"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/Temutjin2k/dispatch-ops/pkg/trm"
	"github.com/google/uuid"
)

// number of idle drivers tried by auto assignment
const autoAssignCandidates = 5

type OrderService struct {
	orders    OrderRepo
	drivers   DriverRepo
	earnings  EarningRepo
	settings  SettingsProvider
	publisher Publisher
	trm       trm.TxManager
	now       func() time.Time
	logger    logger.Logger
}

func NewOrderService(
	orders OrderRepo,
	drivers DriverRepo,
	earnings EarningRepo,
	settings SettingsProvider,
	publisher Publisher,
	trm trm.TxManager,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		drivers:   drivers,
		earnings:  earnings,
		settings:  settings,
		publisher: publisher,
		trm:       trm,
		now:       time.Now,
		logger:    logger,
	}
}

// Create stores a new order in CREATED. With autoAssign enabled it then tries
// to hand the order to the driver that has been idle the longest.
func (s *OrderService) Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	ctx = wrap.WithAction(ctx, "create_order")

	if err := validateCreate(in); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		OrderValue:      fee.Round(in.OrderValue),
		DistanceKm:      in.DistanceKm,
		Status:          types.OrderCreated,
		EstimatedTime:   in.EstimatedTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.DeliveryFee != nil {
		f := fee.Round(*in.DeliveryFee)
		order.DeliveryFee = &f
	}

	ctx = wrap.WithOrderID(ctx, order.ID.String())

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create order: %w", err))
	}

	metrics.OrderTransitionsTotal.WithLabelValues(types.OrderCreated.String()).Inc()
	s.logger.Info(ctx, "order created", "order_value", order.OrderValue, "distance_km", order.DistanceKm)

	event := s.event(ctx, types.EventOrderCreated, order.ID)
	event.Status = order.Status.String()
	s.publish(ctx, event)

	if s.settings.Current().Settings.AutoAssign {
		return s.autoAssign(ctx, order), nil
	}

	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithOrderID(wrap.WithAction(ctx, "get_order"), id.String())

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	// drivers see the open pool and their own orders
	identity := models.IdentityFromContext(ctx)
	if identity.IsDriver() && order.Status != types.OrderCreated && !ownedBy(order, identity.ID) {
		return nil, wrap.Error(ctx, types.ErrNotOrderDriver)
	}

	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, models.Metadata, error) {
	ctx = wrap.WithAction(ctx, "list_orders")

	orders, meta, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, err)
	}
	return orders, meta, nil
}

// Quote prices an order with the active settings without storing anything.
func (s *OrderService) Quote(ctx context.Context, in models.FeeInput) (models.Fee, int64, error) {
	snap := s.settings.Current()
	f, err := fee.Calculate(in, snap.Settings)
	if err != nil {
		return models.Fee{}, 0, wrap.Error(wrap.WithAction(ctx, "quote_order"), err)
	}
	return f, snap.Version, nil
}

// Fees recomputes the fee of a stored order with the active settings and
// returns it next to the frozen values, if any.
func (s *OrderService) Fees(ctx context.Context, id uuid.UUID) (*models.OrderFees, error) {
	ctx = wrap.WithOrderID(wrap.WithAction(ctx, "order_fees"), id.String())

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	snap := s.settings.Current()
	recomputed, err := fee.Calculate(models.FeeInput{OrderValue: order.OrderValue, DistanceUnits: order.DistanceKm}, snap.Settings)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	result := &models.OrderFees{
		OrderID:    order.ID,
		Recomputed: recomputed,
		Version:    snap.Version,
	}
	if order.DeliveryFee != nil && order.DriverPay != nil {
		result.Frozen = &models.Fee{
			DeliveryFee: *order.DeliveryFee,
			DriverPay:   *order.DriverPay,
			Profit:      fee.Round(*order.DeliveryFee - *order.DriverPay),
		}
	}

	return result, nil
}

// Assign binds a driver to a CREATED, unassigned order. Exactly one of any
// number of concurrent attempts wins; the rest get types.ErrOrderAlreadyAssigned.
func (s *OrderService) Assign(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithOrderID(wrap.WithAction(ctx, "assign_order"), orderID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	if !models.IdentityFromContext(ctx).CanActAs(driverID) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}

	return s.assign(ctx, orderID, driverID)
}

func (s *OrderService) assign(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	now := s.now().UTC()

	var (
		assigned *models.Order
		driver   *models.Driver
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		assigned, err = s.orders.Swap(ctx, models.OrderSwap{
			ID:                orderID,
			From:              types.OrderCreated,
			To:                types.OrderAssigned,
			RequireUnassigned: true,
			SetDriver:         &driverID,
			UpdatedAt:         now,
		})
		if err != nil {
			if errors.Is(err, types.ErrConflict) {
				return types.ErrOrderAlreadyAssigned
			}
			return err
		}

		driver, err = s.drivers.SwapStatus(ctx, driverID, types.DriverOnline, types.DriverOnJob, true, now)
		if err != nil {
			if errors.Is(err, types.ErrConflict) {
				return types.ErrDriverUnavailable
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			metrics.AssignmentConflictsTotal.Inc()
			s.logger.Warn(ctx, "assignment rejected", "reason", err.Error())
		}
		return nil, wrap.Error(ctx, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(types.OrderAssigned.String()).Inc()
	metrics.DriverStatusChangesTotal.WithLabelValues(types.DriverOnJob.String()).Inc()
	s.logger.Info(ctx, "order assigned")

	orderEvent := s.event(ctx, types.EventOrderAssigned, assigned.ID)
	orderEvent.Status = assigned.Status.String()
	orderEvent.OldStatus = types.OrderCreated.String()
	orderEvent.DriverID = &driverID
	s.publish(ctx, orderEvent, s.driverEvent(ctx, driver, types.DriverOnline))

	return assigned, nil
}

// autoAssign walks the idle drivers oldest first. Each candidate is tried once.
// A conflict on the order itself ends the attempt; the order stays as it is.
func (s *OrderService) autoAssign(ctx context.Context, order *models.Order) *models.Order {
	ctx = wrap.WithAction(ctx, types.ActionAutoAssign)

	candidates, err := s.drivers.ListAvailable(ctx, autoAssignCandidates)
	if err != nil {
		s.logger.Warn(ctx, "failed to list available drivers", "error", err.Error())
		return order
	}

	for _, d := range candidates {
		assigned, err := s.assign(ctx, order.ID, d.ID)
		if err == nil {
			return assigned
		}
		if errors.Is(err, types.ErrDriverUnavailable) || errors.Is(err, types.ErrDriverNotFound) {
			continue
		}
		s.logger.Warn(ctx, "auto assignment stopped", "driver_id", d.ID.String(), "error", err.Error())
		return order
	}

	s.logger.Info(ctx, "no driver available, order stays unassigned", "candidates", len(candidates))
	return order
}

// Transition moves an order one step forward. CANCELLED is delegated to Cancel;
// ASSIGNED is only reachable through Assign.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, in models.TransitionInput) (*models.Order, error) {
	ctx = wrap.WithOrderID(wrap.WithAction(ctx, "transition_order"), orderID.String())

	if !in.Status.IsValid() {
		return nil, wrap.Error(ctx, types.Validation("status", fmt.Sprintf("unknown order status %q", in.Status)))
	}
	if in.ActualTime != nil && *in.ActualTime < 0 {
		return nil, wrap.Error(ctx, types.Validation("actual_time", "must not be negative"))
	}
	if in.Status == types.OrderCancelled {
		return s.Cancel(ctx, orderID)
	}

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	identity := models.IdentityFromContext(ctx)
	if identity.IsDriver() && !ownedBy(current, identity.ID) {
		return nil, wrap.Error(ctx, types.ErrNotOrderDriver)
	}

	if current.Status.IsTerminal() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s", types.ErrOrderTerminal, current.Status))
	}
	if in.Status == types.OrderAssigned {
		return nil, wrap.Error(ctx, types.ErrAssignViaTransition)
	}
	if !current.Status.CanTransitionTo(in.Status) {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, current.Status, in.Status))
	}

	now := s.now().UTC()
	at := now
	if in.At != nil {
		at = in.At.UTC()
	}

	swap := models.OrderSwap{
		ID:        orderID,
		From:      current.Status,
		To:        in.Status,
		UpdatedAt: now,
	}

	switch in.Status {
	case types.OrderAccepted:
		swap.AcceptedAt = &at
	case types.OrderPickedUp:
		swap.PickedUpAt = &at
	case types.OrderDelivered:
		if err := s.prepareDelivery(current, &swap, at, in.ActualTime); err != nil {
			return nil, wrap.Error(ctx, err)
		}
	}

	var updated *models.Order
	released := false
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.orders.Swap(ctx, swap)
		if err != nil {
			return err
		}
		if in.Status != types.OrderDelivered {
			return nil
		}

		driverID := *updated.AssignedDriverID
		if err := s.earnings.Create(ctx, &models.Earning{
			ID:       uuid.New(),
			DriverID: driverID,
			OrderID:  updated.ID,
			Amount:   *updated.DriverPay,
			EarnedAt: at,
		}); err != nil {
			return fmt.Errorf("failed to record earning: %w", err)
		}

		released, err = s.release(ctx, driverID, now)
		return err
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(updated.Status.String()).Inc()
	s.logger.Info(ctx, "order status changed", "from", current.Status.String(), "to", updated.Status.String())

	event := s.event(ctx, types.EventOrderStatusChanged, updated.ID)
	event.Status = updated.Status.String()
	event.OldStatus = current.Status.String()
	event.DriverID = updated.AssignedDriverID
	events := []models.Event{event}
	if released {
		events = append(events, s.releasedEvent(ctx, *updated.AssignedDriverID))
	}
	s.publish(ctx, events...)

	return updated, nil
}

// prepareDelivery freezes the financial fields and the actual delivery time.
func (s *OrderService) prepareDelivery(current *models.Order, swap *models.OrderSwap, at time.Time, actual *time.Duration) error {
	if current.AssignedDriverID == nil {
		return fmt.Errorf("%w: order has no driver", types.ErrInvalidTransition)
	}

	swap.DeliveredAt = &at

	if actual != nil {
		swap.ActualTime = actual
	} else {
		d := max(at.Sub(current.CreatedAt), 0).Truncate(time.Second)
		swap.ActualTime = &d
	}

	if current.DeliveryFee != nil && current.DriverPay != nil {
		return nil
	}

	active := s.settings.Current().Settings

	var (
		f   models.Fee
		err error
	)
	if current.DeliveryFee != nil {
		f, err = fee.Split(*current.DeliveryFee, active)
	} else {
		f, err = fee.Calculate(models.FeeInput{OrderValue: current.OrderValue, DistanceUnits: current.DistanceKm}, active)
	}
	if err != nil {
		return err
	}

	swap.DeliveryFee = &f.DeliveryFee
	swap.DriverPay = &f.DriverPay
	if current.DriverPay != nil {
		swap.DriverPay = current.DriverPay
	}
	return nil
}

// Cancel is allowed from every non-terminal status. An assigned driver is
// released back to ONLINE in the same transaction.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	ctx = wrap.WithOrderID(wrap.WithAction(ctx, "cancel_order"), orderID.String())

	if models.IdentityFromContext(ctx).IsDriver() {
		return nil, wrap.Error(ctx, types.ErrRoleRequired)
	}

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if current.Status.IsTerminal() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s", types.ErrOrderTerminal, current.Status))
	}

	now := s.now().UTC()

	var cancelled *models.Order
	released := false
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		cancelled, err = s.orders.Swap(ctx, models.OrderSwap{
			ID:          orderID,
			From:        current.Status,
			To:          types.OrderCancelled,
			ClearDriver: true,
			CancelledAt: &now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		if current.AssignedDriverID != nil && current.Status.IsActive() {
			released, err = s.release(ctx, *current.AssignedDriverID, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(types.OrderCancelled.String()).Inc()
	s.logger.Info(ctx, "order cancelled", "from", current.Status.String())

	event := s.event(ctx, types.EventOrderCancelled, cancelled.ID)
	event.Status = cancelled.Status.String()
	event.OldStatus = current.Status.String()
	event.DriverID = current.AssignedDriverID
	events := []models.Event{event}
	if released {
		events = append(events, s.releasedEvent(ctx, *current.AssignedDriverID))
	}
	s.publish(ctx, events...)

	return cancelled, nil
}

// release returns the driver to ONLINE. A driver that is no longer ON_JOB is
// left alone: the order change still commits.
func (s *OrderService) release(ctx context.Context, driverID uuid.UUID, at time.Time) (bool, error) {
	_, err := s.drivers.SwapStatus(ctx, driverID, types.DriverOnJob, types.DriverOnline, false, at)
	switch {
	case err == nil:
		metrics.DriverStatusChangesTotal.WithLabelValues(types.DriverOnline.String()).Inc()
		return true, nil
	case errors.Is(err, types.ErrConflict), errors.Is(err, types.ErrNotFound):
		s.logger.Warn(ctx, "driver was not released", "driver_id", driverID.String(), "reason", err.Error())
		return false, nil
	default:
		return false, err
	}
}

func (s *OrderService) event(ctx context.Context, t types.EventType, id uuid.UUID) models.Event {
	e := models.NewEvent(t, id, s.now())
	e.RequestID = wrap.FromContext(ctx).RequestID
	return e
}

func (s *OrderService) driverEvent(ctx context.Context, d *models.Driver, old types.DriverStatus) models.Event {
	e := s.event(ctx, types.EventDriverStatus, d.ID)
	e.Status = d.Status.String()
	e.OldStatus = old.String()
	return e
}

func (s *OrderService) releasedEvent(ctx context.Context, driverID uuid.UUID) models.Event {
	e := s.event(ctx, types.EventDriverStatus, driverID)
	e.Status = types.DriverOnline.String()
	e.OldStatus = types.DriverOnJob.String()
	return e
}

// publish is best effort: the state change has already committed.
func (s *OrderService) publish(ctx context.Context, events ...models.Event) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish event", "event_type", e.Type.String(), "error", err.Error())
		}
	}
}

func ownedBy(order *models.Order, driverID uuid.UUID) bool {
	return order.AssignedDriverID != nil && *order.AssignedDriverID == driverID
}

func validateCreate(in models.CreateOrderInput) error {
	switch {
	case strings.TrimSpace(in.CustomerName) == "":
		return types.Validation("customer_name", "must be provided")
	case strings.TrimSpace(in.DeliveryAddress) == "":
		return types.Validation("delivery_address", "must be provided")
	case !fee.Valid(in.OrderValue):
		return fmt.Errorf("%w: order value must be a number between 0 and %g", types.ErrInvalidInput, fee.MaxAmount)
	case !fee.Valid(in.DistanceKm):
		return fmt.Errorf("%w: distance must be a number between 0 and %g", types.ErrInvalidInput, fee.MaxAmount)
	case in.DeliveryFee != nil && !fee.Valid(*in.DeliveryFee):
		return fmt.Errorf("%w: delivery fee must be a number between 0 and %g", types.ErrInvalidInput, fee.MaxAmount)
	case in.EstimatedTime != nil && *in.EstimatedTime <= 0:
		return types.Validation("estimated_minutes", "must be greater than zero")
	}
	return nil
}
