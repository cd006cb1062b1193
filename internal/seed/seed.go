// Package seed fills a fresh database with fake drivers and orders for demos
// and local development.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jaswdr/faker"
)

type DriverService interface {
	Create(ctx context.Context, in models.CreateDriverInput) (*models.Driver, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) (*models.Driver, error)
}

type OrderService interface {
	Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
}

type Options struct {
	Drivers int
	Orders  int
	// Online is how many of the new drivers go ONLINE.
	Online int
}

type Result struct {
	Drivers []uuid.UUID
	Orders  []uuid.UUID
}

type Seeder struct {
	drivers DriverService
	orders  OrderService
	fake    faker.Faker
	l       logger.Logger
}

func New(drivers DriverService, orders OrderService, l logger.Logger) *Seeder {
	return &Seeder{
		drivers: drivers,
		orders:  orders,
		fake:    faker.New(),
		l:       l,
	}
}

// Run creates the records through the services, so every write goes through
// the same validation and lifecycle as the API.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	ctx = wrap.WithAction(ctx, "seed")
	var res Result

	for i := 0; i < opts.Drivers; i++ {
		d, err := s.drivers.Create(ctx, s.driverInput())
		if err != nil {
			return res, fmt.Errorf("failed to create driver: %w", err)
		}
		res.Drivers = append(res.Drivers, d.ID)

		if i < opts.Online {
			if _, err := s.drivers.SetStatus(ctx, d.ID, types.DriverOnline); err != nil {
				return res, fmt.Errorf("failed to bring driver online: %w", err)
			}
		}
	}

	for i := 0; i < opts.Orders; i++ {
		o, err := s.orders.Create(ctx, s.orderInput())
		if err != nil {
			return res, fmt.Errorf("failed to create order: %w", err)
		}
		res.Orders = append(res.Orders, o.ID)
	}

	s.l.Info(ctx, "seed completed", "drivers", len(res.Drivers), "orders", len(res.Orders))
	return res, nil
}

func (s *Seeder) driverInput() models.CreateDriverInput {
	// reruns must not collide on the unique email
	email := strings.Replace(s.fake.Internet().Email(), "@", "+"+uuid.NewString()[:8]+"@", 1)

	return models.CreateDriverInput{
		Name:     s.fake.Person().Name(),
		Phone:    s.fake.Phone().Number(),
		Email:    email,
		IsActive: true,
	}
}

func (s *Seeder) orderInput() models.CreateOrderInput {
	return models.CreateOrderInput{
		CustomerName:    s.fake.Person().Name(),
		DeliveryAddress: s.fake.Address().Address(),
		OrderValue:      s.fake.Float64(2, 500, 15000),
		DistanceKm:      s.fake.Float64(1, 1, 25),
	}
}
