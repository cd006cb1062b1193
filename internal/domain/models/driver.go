package models

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

type Driver struct {
	ID           uuid.UUID          // unique identifier
	Name         string             // full name of the driver
	Phone        string             // contact phone
	Email        string             // contact email, login is owned by the auth collaborator
	Status       types.DriverStatus // OFFLINE, ONLINE, ON_JOB
	Latitude     *float64           // last reported position
	Longitude    *float64           //
	LastActiveAt *time.Time         // last heartbeat
	IsActive     bool               // gate on login and on going ONLINE
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateDriverInput struct {
	Name     string
	Phone    string
	Email    string
	IsActive bool
}

type DriverFilter struct {
	Status *types.DriverStatus
	Filters
}

type LocationUpdate struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}

// Earning is written once per delivered order and never changes.
type Earning struct {
	ID       uuid.UUID `json:"id"`
	DriverID uuid.UUID `json:"driver_id"`
	OrderID  uuid.UUID `json:"order_id"`
	Amount   float64   `json:"amount"`
	EarnedAt time.Time `json:"earned_at"`
}
