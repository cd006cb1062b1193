package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/google/uuid"
)

type fakeDrivers struct {
	created []models.CreateDriverInput
	online  []uuid.UUID
	fail    bool
}

func (f *fakeDrivers) Create(_ context.Context, in models.CreateDriverInput) (*models.Driver, error) {
	if f.fail {
		return nil, types.ErrConflict
	}
	f.created = append(f.created, in)
	return &models.Driver{ID: uuid.New(), Email: in.Email}, nil
}

func (f *fakeDrivers) SetStatus(_ context.Context, id uuid.UUID, status types.DriverStatus) (*models.Driver, error) {
	if status == types.DriverOnline {
		f.online = append(f.online, id)
	}
	return &models.Driver{ID: id, Status: status}, nil
}

type fakeOrders struct {
	created []models.CreateOrderInput
}

func (f *fakeOrders) Create(_ context.Context, in models.CreateOrderInput) (*models.Order, error) {
	f.created = append(f.created, in)
	return &models.Order{ID: uuid.New()}, nil
}

func TestRun(t *testing.T) {
	drivers, orders := &fakeDrivers{}, &fakeOrders{}
	s := New(drivers, orders, logger.Nop())

	res, err := s.Run(context.Background(), Options{Drivers: 4, Orders: 6, Online: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Drivers) != 4 || len(res.Orders) != 6 {
		t.Fatalf("unexpected result %d drivers, %d orders", len(res.Drivers), len(res.Orders))
	}
	if len(drivers.online) != 2 || drivers.online[0] != res.Drivers[0] {
		t.Fatalf("expected the first two drivers online, got %v", drivers.online)
	}

	emails := map[string]bool{}
	for _, in := range drivers.created {
		if in.Name == "" || in.Phone == "" || !in.IsActive {
			t.Fatalf("incomplete driver input %+v", in)
		}
		if !strings.Contains(in.Email, "@") {
			t.Fatalf("invalid email %q", in.Email)
		}
		if emails[in.Email] {
			t.Fatalf("duplicate email %q", in.Email)
		}
		emails[in.Email] = true
	}

	for _, in := range orders.created {
		if in.CustomerName == "" || in.DeliveryAddress == "" {
			t.Fatalf("incomplete order input %+v", in)
		}
		if in.OrderValue <= 0 || in.DistanceKm <= 0 {
			t.Fatalf("order values out of range %+v", in)
		}
	}
}

func TestRun_StopsOnError(t *testing.T) {
	s := New(&fakeDrivers{fail: true}, &fakeOrders{}, logger.Nop())

	res, err := s.Run(context.Background(), Options{Drivers: 2, Orders: 2})
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(res.Drivers) != 0 || len(res.Orders) != 0 {
		t.Fatalf("nothing must be reported as created, got %+v", res)
	}
}
