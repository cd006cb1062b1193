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

type OrderService interface {
	Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, models.Metadata, error)
	Quote(ctx context.Context, in models.FeeInput) (models.Fee, int64, error)
	Fees(ctx context.Context, id uuid.UUID) (*models.OrderFees, error)
	Assign(ctx context.Context, orderID, driverID uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, in models.TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type Order struct {
	service OrderService
	l       logger.Logger
}

func NewOrder(service OrderService, l logger.Logger) *Order {
	return &Order{
		service: service,
		l:       l,
	}
}

var orderSortSafelist = []string{"-created_at", "created_at", "updated_at", "-updated_at", "order_value", "-order_value", "status", "-status"}

// Create godoc
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateOrderRequest true "Order details"
// @Success      201 {object} map[string]any
// @Failure      422 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders [post]
func (h *Order) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_create_order")

	var req dto.CreateOrderRequest
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

	order, err := h.service.Create(ctx, req.ToInput())
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to create order", err)
		return
	}

	respond(ctx, h.l, w, http.StatusCreated, envelope{"order": dto.NewOrderResponse(order)})
}

// List godoc
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        status    query string false "Order status"
// @Param        driver_id query string false "Assigned driver"
// @Param        page      query int    false "Page"
// @Param        page_size query int    false "Page size"
// @Param        sort      query string false "Sort key"
// @Success      200 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders [get]
func (h *Order) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_list_orders")

	v := validator.New()
	qs := r.URL.Query()

	filter := models.OrderFilter{
		DriverID: readUUID(qs, "driver_id", v),
		Filters:  readFilters(qs, orderSortSafelist, v),
	}
	if s := qs.Get("status"); s != "" {
		status, ok := types.ParseOrderStatus(s)
		v.Check(ok, "status", "unknown order status")
		filter.Status = &status
	}

	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	orders, meta, err := h.service.List(ctx, filter)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to list orders", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"orders": dto.NewOrderList(orders), "metadata": meta})
}

// Get godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} map[string]any
// @Failure      404 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *Order) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_order")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	order, err := h.service.Get(ctx, id)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to get order", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"order": dto.NewOrderResponse(order)})
}

// Quote godoc
// @Summary      Price an order with the active settings
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "Fee input"
// @Success      200 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders/quote [post]
func (h *Order) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_quote_order")

	var req dto.QuoteRequest
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

	fee, version, err := h.service.Quote(ctx, req.ToInput())
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to quote order", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"fee": fee, "settings_version": version})
}

func (h *Order) Fees(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_order_fees")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	fees, err := h.service.Fees(ctx, id)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to recompute order fees", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"fees": fees})
}

// Assign godoc
// @Summary      Assign a driver to a CREATED order
// @Description  Drivers may omit driver_id to take the order themselves
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Order ID"
// @Param        request body dto.AssignRequest false "Driver"
// @Success      200 {object} map[string]any
// @Failure      409 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders/{id}/assign [post]
func (h *Order) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_assign_order")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.AssignRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
	}

	identity := models.IdentityFromContext(ctx)
	if req.DriverID == nil && identity.IsDriver() {
		req.DriverID = &identity.ID
	}
	if req.DriverID == nil {
		failedValidationResponse(w, map[string]string{"driver_id": "must be provided"})
		return
	}

	order, err := h.service.Assign(ctx, id, *req.DriverID)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to assign order", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"order": dto.NewOrderResponse(order)})
}

// Transition godoc
// @Summary      Move an order one step along its lifecycle
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string                true "Order ID"
// @Param        request body dto.TransitionRequest true "Target status"
// @Success      200 {object} map[string]any
// @Failure      409 {object} map[string]any
// @Security     BearerAuth
// @Router       /orders/{id}/status [post]
func (h *Order) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_transition_order")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.TransitionRequest
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

	order, err := h.service.Transition(ctx, id, req.ToInput())
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to change order status", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"order": dto.NewOrderResponse(order)})
}

func (h *Order) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_cancel_order")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	order, err := h.service.Cancel(ctx, id)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to cancel order", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"order": dto.NewOrderResponse(order)})
}
