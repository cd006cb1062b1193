package models

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

type Issue struct {
	ID         uuid.UUID
	DriverID   uuid.UUID
	OrderID    *uuid.UUID
	Type       types.IssueType
	Message    *string
	Status     types.IssueStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time // set exactly while Status is RESOLVED
}

type CreateIssueInput struct {
	DriverID uuid.UUID
	Type     string
	Message  *string
	OrderID  *uuid.UUID
}

type IssueFilter struct {
	Status   *types.IssueStatus
	DriverID *uuid.UUID
	Filters
}
