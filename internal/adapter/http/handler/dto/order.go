package dto

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	CustomerName     string   `json:"customer_name"`
	DeliveryAddress  string   `json:"delivery_address"`
	OrderValue       *float64 `json:"order_value"`
	DistanceKm       *float64 `json:"distance_km"`
	EstimatedMinutes *float64 `json:"estimated_minutes"`
	DeliveryFee      *float64 `json:"delivery_fee"`
}

// Validate checks presence and size only. Value ranges are enforced by the
// order service.
func (r *CreateOrderRequest) Validate(v *validator.Validator) {
	v.Check(r.CustomerName != "", "customer_name", "must be provided")
	v.Check(len(r.CustomerName) <= 200, "customer_name", "must not be more than 200 bytes long")

	v.Check(r.DeliveryAddress != "", "delivery_address", "must be provided")
	v.Check(len(r.DeliveryAddress) <= 500, "delivery_address", "must not be more than 500 bytes long")

	v.Check(r.OrderValue != nil, "order_value", "must be provided")
	v.Check(r.DistanceKm != nil, "distance_km", "must be provided")
}

func (r *CreateOrderRequest) ToInput() models.CreateOrderInput {
	in := models.CreateOrderInput{
		CustomerName:    r.CustomerName,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryFee:     r.DeliveryFee,
		EstimatedTime:   minutes(r.EstimatedMinutes),
	}
	if r.OrderValue != nil {
		in.OrderValue = *r.OrderValue
	}
	if r.DistanceKm != nil {
		in.DistanceKm = *r.DistanceKm
	}
	return in
}

type QuoteRequest struct {
	OrderValue *float64 `json:"order_value"`
	DistanceKm *float64 `json:"distance_km"`
}

func (r *QuoteRequest) Validate(v *validator.Validator) {
	v.Check(r.OrderValue != nil, "order_value", "must be provided")
	v.Check(r.DistanceKm != nil, "distance_km", "must be provided")
}

func (r *QuoteRequest) ToInput() models.FeeInput {
	var in models.FeeInput
	if r.OrderValue != nil {
		in.OrderValue = *r.OrderValue
	}
	if r.DistanceKm != nil {
		in.DistanceUnits = *r.DistanceKm
	}
	return in
}

type AssignRequest struct {
	DriverID *uuid.UUID `json:"driver_id"`
}

type TransitionRequest struct {
	Status        string     `json:"status"`
	At            *time.Time `json:"at"`
	ActualMinutes *float64   `json:"actual_minutes"`
}

func (r *TransitionRequest) Validate(v *validator.Validator) {
	_, ok := types.ParseOrderStatus(r.Status)
	v.Check(r.Status != "", "status", "must be provided")
	v.Check(r.Status == "" || ok, "status", "unknown order status")
}

func (r *TransitionRequest) ToInput() models.TransitionInput {
	return models.TransitionInput{
		Status:     types.OrderStatus(r.Status),
		At:         r.At,
		ActualTime: minutes(r.ActualMinutes),
	}
}

type OrderResponse struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	DeliveryAddress  string     `json:"delivery_address"`
	OrderValue       float64    `json:"order_value"`
	DistanceKm       float64    `json:"distance_km"`
	Status           string     `json:"status"`
	AssignedDriverID *uuid.UUID `json:"assigned_driver_id"`
	DeliveryFee      *float64   `json:"delivery_fee"`
	DriverPay        *float64   `json:"driver_pay"`
	EstimatedMinutes *float64   `json:"estimated_minutes"`
	ActualMinutes    *float64   `json:"actual_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		CustomerName:     o.CustomerName,
		DeliveryAddress:  o.DeliveryAddress,
		OrderValue:       o.OrderValue,
		DistanceKm:       o.DistanceKm,
		Status:           o.Status.String(),
		AssignedDriverID: o.AssignedDriverID,
		DeliveryFee:      o.DeliveryFee,
		DriverPay:        o.DriverPay,
		EstimatedMinutes: inMinutes(o.EstimatedTime),
		ActualMinutes:    inMinutes(o.ActualTime),
		CreatedAt:        o.CreatedAt,
		AcceptedAt:       o.AcceptedAt,
		PickedUpAt:       o.PickedUpAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func NewOrderList(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

// minutes converts a client value to a duration truncated to whole seconds.
func minutes(m *float64) *time.Duration {
	if m == nil {
		return nil
	}
	d := (time.Duration(*m * float64(time.Minute))).Truncate(time.Second)
	return &d
}

func inMinutes(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	m := d.Minutes()
	return &m
}
