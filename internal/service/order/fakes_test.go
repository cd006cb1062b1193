package order

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/google/uuid"
)

// memStore is an in-memory database. Transactions are serialized and roll
// back by restoring a copy taken at Begin.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]models.Order
	drivers  map[uuid.UUID]models.Driver
	earnings map[uuid.UUID]models.Earning
}

type inTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[uuid.UUID]models.Order{},
		drivers:  map[uuid.UUID]models.Driver{},
		earnings: map[uuid.UUID]models.Earning{},
	}
}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, drivers, earnings := maps.Clone(s.orders), maps.Clone(s.drivers), maps.Clone(s.earnings)
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.orders, s.drivers, s.earnings = orders, drivers, earnings
		return err
	}
	return nil
}

type memOrders struct{ *memStore }

func (r memOrders) Create(ctx context.Context, o *models.Order) error {
	defer r.lock(ctx)()
	r.orders[o.ID] = *o
	return nil
}

func (r memOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.lock(ctx)()
	o, ok := r.orders[id]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrders) List(ctx context.Context, f models.OrderFilter) ([]models.Order, models.Metadata, error) {
	defer r.lock(ctx)()
	var out []models.Order
	for _, o := range r.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, models.CalculateMetadata(len(out), 1, max(len(out), 1)), nil
}

func (r memOrders) Swap(ctx context.Context, sw models.OrderSwap) (*models.Order, error) {
	defer r.lock(ctx)()
	o, ok := r.orders[sw.ID]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	if o.Status != sw.From || (sw.RequireUnassigned && o.AssignedDriverID != nil) {
		return nil, types.ErrOrderChanged
	}

	o.Status = sw.To
	if sw.SetDriver != nil {
		id := *sw.SetDriver
		o.AssignedDriverID = &id
	}
	if sw.ClearDriver {
		o.AssignedDriverID = nil
	}
	if sw.AcceptedAt != nil {
		o.AcceptedAt = sw.AcceptedAt
	}
	if sw.PickedUpAt != nil {
		o.PickedUpAt = sw.PickedUpAt
	}
	if sw.DeliveredAt != nil {
		o.DeliveredAt = sw.DeliveredAt
	}
	if sw.CancelledAt != nil {
		o.CancelledAt = sw.CancelledAt
	}
	if sw.DeliveryFee != nil {
		o.DeliveryFee = sw.DeliveryFee
	}
	if sw.DriverPay != nil {
		o.DriverPay = sw.DriverPay
	}
	if sw.ActualTime != nil {
		o.ActualTime = sw.ActualTime
	}
	o.UpdatedAt = sw.UpdatedAt

	r.orders[o.ID] = o
	return &o, nil
}

type memDrivers struct{ *memStore }

func (r memDrivers) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	defer r.lock(ctx)()
	d, ok := r.drivers[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return &d, nil
}

func (r memDrivers) SwapStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus, requireActive bool, at time.Time) (*models.Driver, error) {
	defer r.lock(ctx)()
	d, ok := r.drivers[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	if d.Status != from || (requireActive && !d.IsActive) {
		return nil, types.ErrDriverChanged
	}
	d.Status = to
	d.LastActiveAt = &at
	d.UpdatedAt = at
	r.drivers[id] = d
	return &d, nil
}

func (r memDrivers) ListAvailable(ctx context.Context, limit int) ([]models.Driver, error) {
	defer r.lock(ctx)()
	var out []models.Driver
	for _, d := range r.drivers {
		if d.Status == types.DriverOnline && d.IsActive {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b models.Driver) int {
		return a.LastActiveAt.Compare(*b.LastActiveAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memEarnings struct{ *memStore }

func (r memEarnings) Create(ctx context.Context, e *models.Earning) error {
	defer r.lock(ctx)()
	if _, ok := r.earnings[e.OrderID]; ok {
		return types.ErrOrderChanged
	}
	r.earnings[e.OrderID] = *e
	return nil
}

type fixedSettings struct{ snap models.SettingsSnapshot }

func (f *fixedSettings) Current() models.SettingsSnapshot { return f.snap }

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *memStore
	settings *fixedSettings
	events   *recordingPublisher
	clock    time.Time
	svc      *OrderService
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		settings: &fixedSettings{snap: models.SettingsSnapshot{Version: 1, Settings: models.DefaultSettings()}},
		events:   &recordingPublisher{},
		clock:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewOrderService(
		memOrders{f.store},
		memDrivers{f.store},
		memEarnings{f.store},
		f.settings,
		f.events,
		f.store,
		logger.Nop(),
	)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) addDriver(status types.DriverStatus, active bool, lastActive time.Time) uuid.UUID {
	id := uuid.New()
	f.store.drivers[id] = models.Driver{
		ID:           id,
		Name:         "driver " + id.String()[:4],
		Status:       status,
		IsActive:     active,
		LastActiveAt: &lastActive,
		CreatedAt:    lastActive,
		UpdatedAt:    lastActive,
	}
	return id
}

func (f *fixture) driver(id uuid.UUID) models.Driver {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.drivers[id]
}

func (f *fixture) order(id uuid.UUID) models.Order {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.orders[id]
}
