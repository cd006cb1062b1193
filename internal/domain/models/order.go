package models

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

type Order struct {
	ID               uuid.UUID
	CustomerName     string
	DeliveryAddress  string
	OrderValue       float64
	DistanceKm       float64 // externally supplied fee input
	Status           types.OrderStatus
	AssignedDriverID *uuid.UUID

	// Замороженные финансовые поля, nil до расчета
	DeliveryFee *float64
	DriverPay   *float64

	EstimatedTime *time.Duration
	ActualTime    *time.Duration

	// Временные метки
	CreatedAt   time.Time
	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

// OnTime reports whether the delivery met its estimate. A missing estimate or
// actual time counts as on time.
func (o *Order) OnTime() bool {
	if o.EstimatedTime == nil || o.ActualTime == nil {
		return true
	}
	return *o.ActualTime <= *o.EstimatedTime
}

// OrderSwap is a compare-and-set on a single order row: it applies only while
// the row still has status From (and no driver when RequireUnassigned is set).
// Nil pointer fields are left untouched.
type OrderSwap struct {
	ID                uuid.UUID
	From              types.OrderStatus
	To                types.OrderStatus
	RequireUnassigned bool

	SetDriver   *uuid.UUID
	ClearDriver bool

	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	DeliveryFee *float64
	DriverPay   *float64
	ActualTime  *time.Duration

	UpdatedAt time.Time
}

type OrderFilter struct {
	Status   *types.OrderStatus
	DriverID *uuid.UUID
	Filters
}

// CreateOrderInput is the validated shape accepted by order creation.
type CreateOrderInput struct {
	CustomerName    string
	DeliveryAddress string
	OrderValue      float64
	DistanceKm      float64
	EstimatedTime   *time.Duration
	DeliveryFee     *float64
}

// TransitionInput carries a requested status change with optional timestamps.
type TransitionInput struct {
	Status     types.OrderStatus
	At         *time.Time
	ActualTime *time.Duration
}

type OrderFees struct {
	OrderID    uuid.UUID `json:"order_id"`
	Frozen     *Fee      `json:"frozen,omitempty"`
	Recomputed Fee       `json:"recomputed"`
	Version    int64     `json:"settings_version"`
}
