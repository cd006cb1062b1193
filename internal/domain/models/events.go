package models

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

// Event is published after a state change commits.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       types.EventType `json:"type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Status     string          `json:"status,omitempty"`
	OldStatus  string          `json:"old_status,omitempty"`
	DriverID   *uuid.UUID      `json:"driver_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
}

func NewEvent(t types.EventType, entityID uuid.UUID, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		EntityID:   entityID,
		OccurredAt: at.UTC(),
	}
}
