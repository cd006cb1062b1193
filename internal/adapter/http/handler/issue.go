package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
	"github.com/google/uuid"
)

type IssueService interface {
	Create(ctx context.Context, in models.CreateIssueInput) (*models.Issue, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, models.Metadata, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Issue, error)
}

type Issue struct {
	service IssueService
	l       logger.Logger
}

func NewIssue(service IssueService, l logger.Logger) *Issue {
	return &Issue{
		service: service,
		l:       l,
	}
}

var issueSortSafelist = []string{"-created_at", "created_at"}

// Create godoc
// @Summary      Report an issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateIssueRequest true "Issue"
// @Success      201 {object} map[string]any
// @Failure      422 {object} map[string]any "InvalidIssueType"
// @Security     BearerAuth
// @Router       /issues [post]
func (h *Issue) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_create_issue")

	var req dto.CreateIssueRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	identity := models.IdentityFromContext(ctx)
	if !identity.IsDriver() {
		serviceErrorResponse(ctx, h.l, w, "failed to report issue", wrap.Error(ctx, types.ErrRoleRequired))
		return
	}

	issue, err := h.service.Create(ctx, req.ToInput(identity.ID))
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to report issue", err)
		return
	}

	respond(ctx, h.l, w, http.StatusCreated, envelope{"issue": dto.NewIssueResponse(issue)})
}

func (h *Issue) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_list_issues")

	v := validator.New()
	qs := r.URL.Query()

	filter := models.IssueFilter{
		DriverID: readUUID(qs, "driver_id", v),
		Filters:  readFilters(qs, issueSortSafelist, v),
	}
	if s := qs.Get("status"); s != "" {
		status := types.IssueStatus(s)
		v.Check(status.IsValid(), "status", "unknown issue status")
		filter.Status = &status
	}

	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	issues, meta, err := h.service.List(ctx, filter)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to list issues", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"issues": dto.NewIssueList(issues), "metadata": meta})
}

func (h *Issue) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_issue")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	issue, err := h.service.Get(ctx, id)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to get issue", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"issue": dto.NewIssueResponse(issue)})
}

// Update resolves or reopens an issue.
func (h *Issue) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_update_issue")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.UpdateIssueRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	issue, err := h.service.SetStatus(ctx, id, req.Status)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to update issue", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"issue": dto.NewIssueResponse(issue)})
}
