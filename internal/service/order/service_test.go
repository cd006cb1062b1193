package order

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

func (f *fixture) createOrder(t *testing.T, value, distance float64) *models.Order {
	t.Helper()
	estimate := 30 * time.Minute
	o, err := f.svc.Create(context.Background(), models.CreateOrderInput{
		CustomerName:    "Aigerim",
		DeliveryAddress: "Abay 10",
		OrderValue:      value,
		DistanceKm:      distance,
		EstimatedTime:   &estimate,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func (f *fixture) step(t *testing.T, id uuid.UUID, status types.OrderStatus) *models.Order {
	t.Helper()
	o, err := f.svc.Transition(context.Background(), id, models.TransitionInput{Status: status})
	if err != nil {
		t.Fatalf("transition to %s: %v", status, err)
	}
	return o
}

func TestCreate(t *testing.T) {
	f := newFixture()

	o := f.createOrder(t, 1200, 3)
	if o.Status != types.OrderCreated || o.AssignedDriverID != nil {
		t.Fatalf("new order must be CREATED and unassigned, got %+v", o)
	}
	if o.DeliveryFee != nil || o.DriverPay != nil {
		t.Fatalf("fees must not be frozen at creation")
	}
	if got := f.events.kinds(); !slices.Equal(got, []types.EventType{types.EventOrderCreated}) {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	negative := -5.0
	huge := 1e300
	zero := time.Duration(0)

	tests := []struct {
		name string
		in   models.CreateOrderInput
		want error
	}{
		{"missing customer", models.CreateOrderInput{DeliveryAddress: "x"}, types.ErrValidation},
		{"missing address", models.CreateOrderInput{CustomerName: "x"}, types.ErrValidation},
		{"negative value", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", OrderValue: -1}, types.ErrInvalidInput},
		{"negative distance", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", DistanceKm: -1}, types.ErrInvalidInput},
		{"negative fee", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", DeliveryFee: &negative}, types.ErrInvalidInput},
		{"huge value", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", OrderValue: 1e17}, types.ErrInvalidInput},
		{"huge distance", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", DistanceKm: 1e14}, types.ErrInvalidInput},
		{"huge fee", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", DeliveryFee: &huge}, types.ErrInvalidInput},
		{"zero estimate", models.CreateOrderInput{CustomerName: "x", DeliveryAddress: "y", EstimatedTime: &zero}, types.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.store.orders) != 0 {
				t.Fatalf("invalid order must not be stored")
			}
		})
	}
}

func TestCreate_AutoAssignPicksLongestIdle(t *testing.T) {
	f := newFixture()
	f.settings.snap.Settings.AutoAssign = true

	recent := f.addDriver(types.DriverOnline, true, f.clock.Add(-time.Minute))
	idle := f.addDriver(types.DriverOnline, true, f.clock.Add(-time.Hour))
	f.addDriver(types.DriverOnline, false, f.clock.Add(-2*time.Hour))
	f.addDriver(types.DriverOffline, true, f.clock.Add(-3*time.Hour))

	o := f.createOrder(t, 100, 1)
	if o.Status != types.OrderAssigned || o.AssignedDriverID == nil || *o.AssignedDriverID != idle {
		t.Fatalf("expected assignment to the longest idle driver, got %+v", o)
	}
	if f.driver(idle).Status != types.DriverOnJob || f.driver(recent).Status != types.DriverOnline {
		t.Fatalf("driver statuses not updated as expected")
	}
}

func TestCreate_AutoAssignWithoutDrivers(t *testing.T) {
	f := newFixture()
	f.settings.snap.Settings.AutoAssign = true

	o := f.createOrder(t, 100, 1)
	if o.Status != types.OrderCreated {
		t.Fatalf("order must stay CREATED, got %s", o.Status)
	}
}

func TestAssign(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 100, 1)

	got, err := f.svc.Assign(context.Background(), o.ID, d)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != types.OrderAssigned || *got.AssignedDriverID != d {
		t.Fatalf("unexpected order %+v", got)
	}
	if f.driver(d).Status != types.DriverOnJob {
		t.Fatalf("driver must be ON_JOB")
	}

	other := f.addDriver(types.DriverOnline, true, f.clock)
	if _, err := f.svc.Assign(context.Background(), o.ID, other); !errors.Is(err, types.ErrConflict) {
		t.Fatalf("second assignment must conflict, got %v", err)
	}
}

func TestAssign_Race(t *testing.T) {
	f := newFixture()
	o := f.createOrder(t, 100, 1)

	const contenders = 32
	drivers := make([]uuid.UUID, contenders)
	for i := range drivers {
		drivers[i] = f.addDriver(types.DriverOnline, true, f.clock)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []uuid.UUID
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, d := range drivers {
		wg.Add(1)
		go func(d uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Assign(context.Background(), o.ID, d)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, d)
			case errors.Is(err, types.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(d)
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if len(winners) != 1 || conflicts != contenders-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d conflicts", len(winners), conflicts)
	}

	final := f.order(o.ID)
	if final.AssignedDriverID == nil || *final.AssignedDriverID != winners[0] {
		t.Fatalf("stored driver does not match the winner")
	}
	for _, d := range drivers {
		want := types.DriverOnline
		if d == winners[0] {
			want = types.DriverOnJob
		}
		if got := f.driver(d).Status; got != want {
			t.Fatalf("driver %s: got %s want %s", d, got, want)
		}
	}
}

func TestAssign_DriverUnavailableRollsBack(t *testing.T) {
	tests := []struct {
		name   string
		status types.DriverStatus
		active bool
	}{
		{"offline", types.DriverOffline, true},
		{"on job", types.DriverOnJob, true},
		{"disabled", types.DriverOnline, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			d := f.addDriver(tt.status, tt.active, f.clock)
			o := f.createOrder(t, 100, 1)

			_, err := f.svc.Assign(context.Background(), o.ID, d)
			if !errors.Is(err, types.ErrDriverUnavailable) {
				t.Fatalf("expected driver unavailable, got %v", err)
			}
			if got := f.order(o.ID); got.Status != types.OrderCreated || got.AssignedDriverID != nil {
				t.Fatalf("order must be rolled back, got %+v", got)
			}
		})
	}
}

func TestAssign_Authorization(t *testing.T) {
	f := newFixture()
	self := f.addDriver(types.DriverOnline, true, f.clock)
	other := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 100, 1)

	ctx := models.WithIdentity(context.Background(), &models.Identity{ID: self, Role: types.RoleDriver})

	if _, err := f.svc.Assign(ctx, o.ID, other); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("driver must not assign someone else, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, o.ID, self); err != nil {
		t.Fatalf("driver may self assign: %v", err)
	}
}

func TestAssign_UnknownOrder(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)

	if _, err := f.svc.Assign(context.Background(), uuid.New(), d); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransition_FullLifecycle(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 1200, 3)

	if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
		t.Fatalf("assign: %v", err)
	}

	f.advance(5 * time.Minute)
	accepted := f.step(t, o.ID, types.OrderAccepted)
	if accepted.AcceptedAt == nil || !accepted.AcceptedAt.Equal(f.clock) {
		t.Fatalf("acceptedAt not set: %+v", accepted.AcceptedAt)
	}

	f.advance(5 * time.Minute)
	picked := f.step(t, o.ID, types.OrderPickedUp)
	if picked.PickedUpAt == nil {
		t.Fatalf("pickedUpAt not set")
	}

	f.step(t, o.ID, types.OrderEnRoute)

	f.advance(10 * time.Minute)
	delivered := f.step(t, o.ID, types.OrderDelivered)

	if delivered.DeliveredAt == nil || !delivered.DeliveredAt.Equal(f.clock) {
		t.Fatalf("deliveredAt not set")
	}
	if delivered.DeliveryFee == nil || *delivered.DeliveryFee != 130 {
		t.Fatalf("expected delivery fee 130, got %v", delivered.DeliveryFee)
	}
	if delivered.DriverPay == nil || *delivered.DriverPay != 78 {
		t.Fatalf("expected driver pay 78, got %v", delivered.DriverPay)
	}
	if delivered.ActualTime == nil || *delivered.ActualTime != 20*time.Minute {
		t.Fatalf("expected actual time 20m, got %v", delivered.ActualTime)
	}
	if !delivered.OnTime() {
		t.Fatalf("20m against a 30m estimate is on time")
	}

	earning, ok := f.store.earnings[o.ID]
	if !ok || earning.DriverID != d || earning.Amount != 78 {
		t.Fatalf("unexpected earning %+v", earning)
	}
	if f.driver(d).Status != types.DriverOnline {
		t.Fatalf("driver must be released after delivery")
	}

	got := f.events.kinds()
	if got[len(got)-1] != types.EventDriverStatus {
		t.Fatalf("expected a driver release event last, got %v", got)
	}
}

func TestTransition_PresetFeeIsSplit(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)

	preset := 75.0
	o, err := f.svc.Create(context.Background(), models.CreateOrderInput{
		CustomerName:    "Dana",
		DeliveryAddress: "Tole bi 5",
		OrderValue:      50,
		DeliveryFee:     &preset,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, st := range []types.OrderStatus{types.OrderAccepted, types.OrderPickedUp, types.OrderEnRoute} {
		f.step(t, o.ID, st)
	}
	delivered := f.step(t, o.ID, types.OrderDelivered)

	if *delivered.DeliveryFee != 75 || *delivered.DriverPay != 45 {
		t.Fatalf("expected 75/45, got %v/%v", *delivered.DeliveryFee, *delivered.DriverPay)
	}
}

func TestTransition_Rejections(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 100, 1)

	if _, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: types.OrderAccepted}); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("CREATED -> ACCEPTED must be rejected, got %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: types.OrderAssigned}); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("ASSIGNED via transition must be rejected, got %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: "LOST"}); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("unknown status must be a validation error, got %v", err)
	}

	if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: types.OrderPickedUp}); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("skipping ACCEPTED must be rejected, got %v", err)
	}
	if got := f.order(o.ID); got.Status != types.OrderAssigned {
		t.Fatalf("rejected transition must not change the order")
	}
}

func TestTransition_FromDeliveredFails(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 100, 1)
	if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, st := range []types.OrderStatus{types.OrderAccepted, types.OrderPickedUp, types.OrderEnRoute, types.OrderDelivered} {
		f.step(t, o.ID, st)
	}

	all := []types.OrderStatus{
		types.OrderCreated, types.OrderAssigned, types.OrderAccepted, types.OrderPickedUp,
		types.OrderEnRoute, types.OrderDelivered, types.OrderCancelled,
	}
	for _, st := range all {
		_, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: st})
		if !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("DELIVERED -> %s: expected invalid transition, got %v", st, err)
		}
	}

	if _, err := f.svc.Cancel(context.Background(), o.ID); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("cancel from DELIVERED must fail, got %v", err)
	}
	if len(f.store.earnings) != 1 {
		t.Fatalf("exactly one earning per delivered order, got %d", len(f.store.earnings))
	}
}

func TestTransition_DriverMustOwnOrder(t *testing.T) {
	f := newFixture()
	owner := f.addDriver(types.DriverOnline, true, f.clock)
	stranger := f.addDriver(types.DriverOnline, true, f.clock)
	o := f.createOrder(t, 100, 1)
	if _, err := f.svc.Assign(context.Background(), o.ID, owner); err != nil {
		t.Fatalf("assign: %v", err)
	}

	ctx := models.WithIdentity(context.Background(), &models.Identity{ID: stranger, Role: types.RoleDriver})
	if _, err := f.svc.Transition(ctx, o.ID, models.TransitionInput{Status: types.OrderAccepted}); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	ctx = models.WithIdentity(context.Background(), &models.Identity{ID: owner, Role: types.RoleDriver})
	if _, err := f.svc.Transition(ctx, o.ID, models.TransitionInput{Status: types.OrderAccepted}); err != nil {
		t.Fatalf("owner may advance the order: %v", err)
	}
}

func TestCancel(t *testing.T) {
	t.Run("unassigned", func(t *testing.T) {
		f := newFixture()
		o := f.createOrder(t, 100, 1)

		got, err := f.svc.Cancel(context.Background(), o.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != types.OrderCancelled || got.CancelledAt == nil {
			t.Fatalf("unexpected order %+v", got)
		}
	})

	t.Run("assigned releases driver", func(t *testing.T) {
		f := newFixture()
		d := f.addDriver(types.DriverOnline, true, f.clock)
		o := f.createOrder(t, 100, 1)
		if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
			t.Fatalf("assign: %v", err)
		}
		f.step(t, o.ID, types.OrderAccepted)

		got, err := f.svc.Transition(context.Background(), o.ID, models.TransitionInput{Status: types.OrderCancelled})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.AssignedDriverID != nil {
			t.Fatalf("driver must be cleared")
		}
		if f.driver(d).Status != types.DriverOnline {
			t.Fatalf("driver must be ONLINE again")
		}
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture()
		o := f.createOrder(t, 100, 1)
		if _, err := f.svc.Cancel(context.Background(), o.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := f.svc.Cancel(context.Background(), o.ID); !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})

	t.Run("driver role", func(t *testing.T) {
		f := newFixture()
		o := f.createOrder(t, 100, 1)
		ctx := models.WithIdentity(context.Background(), &models.Identity{ID: uuid.New(), Role: types.RoleDriver})
		if _, err := f.svc.Cancel(ctx, o.ID); !errors.Is(err, types.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestQuoteAndFees(t *testing.T) {
	f := newFixture()
	d := f.addDriver(types.DriverOnline, true, f.clock)

	q, version, err := f.svc.Quote(context.Background(), models.FeeInput{OrderValue: 1200, DistanceUnits: 3})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q != (models.Fee{DeliveryFee: 130, DriverPay: 78, Profit: 52}) || version != 1 {
		t.Fatalf("unexpected quote %+v v%d", q, version)
	}

	if _, _, err := f.svc.Quote(context.Background(), models.FeeInput{OrderValue: -1}); !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	o := f.createOrder(t, 1200, 3)
	fees, err := f.svc.Fees(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if fees.Frozen != nil {
		t.Fatalf("nothing is frozen before delivery")
	}

	if _, err := f.svc.Assign(context.Background(), o.ID, d); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, st := range []types.OrderStatus{types.OrderAccepted, types.OrderPickedUp, types.OrderEnRoute, types.OrderDelivered} {
		f.step(t, o.ID, st)
	}

	// settings changed after delivery: frozen values stay, recomputation follows
	f.settings.snap = models.SettingsSnapshot{Version: 2, Settings: models.DefaultSettings()}
	f.settings.snap.Settings.BaseFee = 100

	fees, err = f.svc.Fees(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if fees.Frozen == nil || fees.Frozen.DeliveryFee != 130 || fees.Frozen.Profit != 52 {
		t.Fatalf("unexpected frozen fee %+v", fees.Frozen)
	}
	if fees.Recomputed.DeliveryFee != 180 || fees.Version != 2 {
		t.Fatalf("unexpected recomputed fee %+v", fees.Recomputed)
	}
}

func TestGet_DriverVisibility(t *testing.T) {
	f := newFixture()
	owner := f.addDriver(types.DriverOnline, true, f.clock)
	stranger := uuid.New()
	o := f.createOrder(t, 100, 1)

	strangerCtx := models.WithIdentity(context.Background(), &models.Identity{ID: stranger, Role: types.RoleDriver})
	if _, err := f.svc.Get(strangerCtx, o.ID); err != nil {
		t.Fatalf("open orders are visible to drivers: %v", err)
	}

	if _, err := f.svc.Assign(context.Background(), o.ID, owner); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.svc.Get(strangerCtx, o.ID); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
