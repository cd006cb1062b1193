package dto

import (
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/google/uuid"
)

// CreateIssueRequest has no reporter field; the reporter is always the caller.
// Type and status values are checked by the issue service.
type CreateIssueRequest struct {
	OrderID *uuid.UUID `json:"order_id"`
	Type    string     `json:"type"`
	Message *string    `json:"message"`
}

func (r *CreateIssueRequest) ToInput(reporter uuid.UUID) models.CreateIssueInput {
	return models.CreateIssueInput{
		DriverID: reporter,
		Type:     r.Type,
		Message:  r.Message,
		OrderID:  r.OrderID,
	}
}

type UpdateIssueRequest struct {
	Status string `json:"status"`
}

type IssueResponse struct {
	ID         uuid.UUID  `json:"id"`
	DriverID   uuid.UUID  `json:"driver_id"`
	OrderID    *uuid.UUID `json:"order_id"`
	Type       string     `json:"type"`
	Message    *string    `json:"message"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func NewIssueResponse(i *models.Issue) IssueResponse {
	return IssueResponse{
		ID:         i.ID,
		DriverID:   i.DriverID,
		OrderID:    i.OrderID,
		Type:       i.Type.String(),
		Message:    i.Message,
		Status:     i.Status.String(),
		CreatedAt:  i.CreatedAt,
		ResolvedAt: i.ResolvedAt,
	}
}

func NewIssueList(issues []models.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}
