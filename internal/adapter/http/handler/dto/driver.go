package dto

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
	"github.com/google/uuid"
)

type CreateDriverRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
}

func (r *CreateDriverRequest) Validate(v *validator.Validator) {
	// Name
	v.Check(r.Name != "", "name", "must be provided")
	v.Check(len(r.Name) <= 100, "name", "must not be more than 100 bytes long")

	// Phone
	v.Check(r.Phone != "", "phone", "must be provided")
	v.Check(len(r.Phone) <= 32, "phone", "must not be more than 32 bytes long")

	// Email
	v.Check(r.Email != "", "email", "must be provided")
	v.Check(validator.Matches(r.Email, validator.EmailRX), "email", "must be a valid email address")
}

// ToInput defaults is_active to true.
func (r *CreateDriverRequest) ToInput() models.CreateDriverInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.CreateDriverInput{
		Name:     r.Name,
		Phone:    r.Phone,
		Email:    r.Email,
		IsActive: active,
	}
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (r *SetActiveRequest) Validate(v *validator.Validator) {
	v.Check(r.IsActive != nil, "is_active", "must be provided")
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func (r *SetStatusRequest) Validate(v *validator.Validator) {
	v.Check(r.Status != "", "status", "must be provided")
	v.Check(r.Status == "" || types.DriverStatus(r.Status).IsValid(), "status", "unknown driver status")
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Validate checks presence; coordinate ranges are checked by the driver service.
func (r *LocationRequest) Validate(v *validator.Validator) {
	v.Check(r.Latitude != nil, "latitude", "must be provided")
	v.Check(r.Longitude != nil, "longitude", "must be provided")
}

type DriverResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	LastActiveAt *time.Time `json:"last_active_at"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewDriverResponse(d *models.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		Email:        d.Email,
		Status:       d.Status.String(),
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		LastActiveAt: d.LastActiveAt,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func NewDriverList(drivers []models.Driver) []DriverResponse {
	out := make([]DriverResponse, 0, len(drivers))
	for i := range drivers {
		out = append(out, NewDriverResponse(&drivers[i]))
	}
	return out
}
