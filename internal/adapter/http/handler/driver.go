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

type Driver struct {
	service DriverService
	l       logger.Logger
}

type DriverService interface {
	Create(ctx context.Context, in models.CreateDriverInput) (*models.Driver, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, models.Metadata, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Driver, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) (*models.Driver, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, latitude, longitude float64) (*models.Driver, error)
	Earnings(ctx context.Context, id uuid.UUID, filters models.Filters) ([]models.Earning, models.Metadata, error)
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

var (
	driverSortSafelist  = []string{"name", "-name", "created_at", "-created_at", "last_active_at", "-last_active_at"}
	earningSortSafelist = []string{"-earned_at", "earned_at", "amount", "-amount"}
)

// Create godoc
// @Summary      Register a driver
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateDriverRequest true "Driver details"
// @Success      201 {object} map[string]any
// @Failure      409 {object} map[string]any "Email already registered"
// @Failure      422 {object} map[string]any
// @Security     BearerAuth
// @Router       /drivers [post]
func (h *Driver) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_create_driver")

	var req dto.CreateDriverRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	driver, err := h.service.Create(ctx, req.ToInput())
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to create driver", err)
		return
	}

	respond(ctx, h.l, w, http.StatusCreated, envelope{"driver": dto.NewDriverResponse(driver)})
}

func (h *Driver) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_list_drivers")

	v := validator.New()
	qs := r.URL.Query()

	filter := models.DriverFilter{Filters: readFilters(qs, driverSortSafelist, v)}
	if s := qs.Get("status"); s != "" {
		status := types.DriverStatus(s)
		v.Check(status.IsValid(), "status", "unknown driver status")
		filter.Status = &status
	}

	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	drivers, meta, err := h.service.List(ctx, filter)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to list drivers", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"drivers": dto.NewDriverList(drivers), "metadata": meta})
}

func (h *Driver) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_driver")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	driver, err := h.service.Get(ctx, id)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to get driver", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"driver": dto.NewDriverResponse(driver)})
}

func (h *Driver) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_set_driver_active")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.SetActiveRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	driver, err := h.service.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to update driver account", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"driver": dto.NewDriverResponse(driver)})
}

// SetStatus godoc
// @Summary      Go online or offline
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Param        id      path string               true "Driver ID"
// @Param        request body dto.SetStatusRequest true "OFFLINE or ONLINE"
// @Success      200 {object} map[string]any
// @Failure      403 {object} map[string]any "Account disabled"
// @Failure      409 {object} map[string]any "Driver is on a job"
// @Security     BearerAuth
// @Router       /drivers/{id}/status [post]
func (h *Driver) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_set_driver_status")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.SetStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	driver, err := h.service.SetStatus(ctx, id, types.DriverStatus(req.Status))
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to change driver status", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"driver": dto.NewDriverResponse(driver)})
}

func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_update_driver_location")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.LocationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	driver, err := h.service.UpdateLocation(ctx, id, *req.Latitude, *req.Longitude)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to update driver location", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"driver": dto.NewDriverResponse(driver)})
}

func (h *Driver) Earnings(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_driver_earnings")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	filters := readFilters(r.URL.Query(), earningSortSafelist, v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	earnings, meta, err := h.service.Earnings(ctx, id, filters)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to list driver earnings", err)
		return
	}
	if earnings == nil {
		earnings = []models.Earning{}
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"earnings": earnings, "metadata": meta})
}
