package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/google/uuid"
)

type fakeOrders struct {
	err error

	created    *models.CreateOrderInput
	assignedTo uuid.UUID
}

func (f *fakeOrders) order(id uuid.UUID) *models.Order {
	return &models.Order{ID: id, CustomerName: "Aigerim", Status: types.OrderCreated, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

func (f *fakeOrders) Create(_ context.Context, in models.CreateOrderInput) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &in
	return f.order(uuid.New()), nil
}

func (f *fakeOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order(id), nil
}

func (f *fakeOrders) List(context.Context, models.OrderFilter) ([]models.Order, models.Metadata, error) {
	return nil, models.Metadata{}, f.err
}

func (f *fakeOrders) Quote(context.Context, models.FeeInput) (models.Fee, int64, error) {
	return models.Fee{}, 0, f.err
}

func (f *fakeOrders) Fees(context.Context, uuid.UUID) (*models.OrderFees, error) {
	return nil, f.err
}

func (f *fakeOrders) Assign(_ context.Context, orderID, driverID uuid.UUID) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.assignedTo = driverID
	o := f.order(orderID)
	o.Status = types.OrderAssigned
	o.AssignedDriverID = &driverID
	return o, nil
}

func (f *fakeOrders) Transition(_ context.Context, id uuid.UUID, _ models.TransitionInput) (*models.Order, error) {
	return f.order(id), f.err
}

func (f *fakeOrders) Cancel(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return f.order(id), f.err
}

type errorBody struct {
	Error struct {
		Kind    types.Kind        `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{types.Validation("name", "must be provided"), http.StatusUnprocessableEntity},
		{types.ErrInvalidInput, http.StatusUnprocessableEntity},
		{types.ErrInvalidIssueType, http.StatusUnprocessableEntity},
		{types.ErrInvalidIssueStatus, http.StatusUnprocessableEntity},
		{types.ErrOrderAlreadyAssigned, http.StatusConflict},
		{types.ErrOrderTerminal, http.StatusConflict},
		{types.ErrInvalidToken, http.StatusUnauthorized},
		{types.ErrNotOrderDriver, http.StatusForbidden},
		{types.ErrAccountDisabled, http.StatusForbidden},
		{types.ErrOrderNotFound, http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetCode(types.KindOf(tt.err)); got != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, got)
		}
	}
}

func TestOrderCreate_Validation(t *testing.T) {
	svc := &fakeOrders{}
	h := NewOrder(svc, logger.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customer_name":"Aigerim"}`))
	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Error.Kind != types.KindValidation {
		t.Fatalf("unexpected kind %q", body.Error.Kind)
	}
	for _, f := range []string{"delivery_address", "order_value", "distance_km"} {
		if _, ok := body.Error.Fields[f]; !ok {
			t.Fatalf("missing field error %q in %v", f, body.Error.Fields)
		}
	}
	if svc.created != nil {
		t.Fatalf("service must not be called")
	}
}

func TestOrderCreate_UnknownField(t *testing.T) {
	h := NewOrder(&fakeOrders{}, logger.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customer":"x"}`))
	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestOrderCreate(t *testing.T) {
	svc := &fakeOrders{}
	h := NewOrder(svc, logger.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(
		`{"customer_name":"Aigerim","delivery_address":"Abay 10","order_value":1200,"distance_km":3,"estimated_minutes":25}`))
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil || svc.created.OrderValue != 1200 || svc.created.EstimatedTime == nil || *svc.created.EstimatedTime != 25*time.Minute {
		t.Fatalf("unexpected service input %+v", svc.created)
	}
}

func TestOrderGet_Errors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		err    error
		status int
		kind   types.Kind
	}{
		{name: "bad id", id: "nope", status: http.StatusUnprocessableEntity, kind: types.KindValidation},
		{name: "missing", id: uuid.NewString(), err: types.ErrOrderNotFound, status: http.StatusNotFound, kind: types.KindNotFound},
		{name: "forbidden", id: uuid.NewString(), err: types.ErrNotOrderDriver, status: http.StatusForbidden, kind: types.KindForbidden},
		{name: "internal", id: uuid.NewString(), err: errors.New("pool closed"), status: http.StatusInternalServerError, kind: types.KindPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOrder(&fakeOrders{err: tt.err}, logger.Nop())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/orders/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			h.Get(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			body := decodeErrorBody(t, rec)
			if body.Error.Kind != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, body.Error.Kind)
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(body.Error.Message, "pool closed") {
				t.Fatalf("internal details leaked: %q", body.Error.Message)
			}
		})
	}
}

func TestOrderAssign_DriverDefaultsToSelf(t *testing.T) {
	svc := &fakeOrders{}
	h := NewOrder(svc, logger.Nop())
	self := uuid.New()
	orderID := uuid.New()

	ctx := models.WithIdentity(context.Background(), &models.Identity{ID: self, Role: types.RoleDriver})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/assign", nil).WithContext(ctx)
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()
	h.Assign(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.assignedTo != self {
		t.Fatalf("expected assignment to the caller, got %s", svc.assignedTo)
	}
}

func TestOrderAssign_ManagerNeedsDriver(t *testing.T) {
	h := NewOrder(&fakeOrders{}, logger.Nop())
	orderID := uuid.New()

	ctx := models.WithIdentity(context.Background(), &models.Identity{ID: uuid.New(), Role: types.RoleManager})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/assign", nil).WithContext(ctx)
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()
	h.Assign(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Error.Fields["driver_id"] == "" {
		t.Fatalf("expected driver_id field error, got %+v", body)
	}
}

func TestOrderAssign_Conflict(t *testing.T) {
	h := NewOrder(&fakeOrders{err: types.ErrOrderAlreadyAssigned}, logger.Nop())
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/assign",
		strings.NewReader(`{"driver_id":"`+uuid.NewString()+`"}`))
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()
	h.Assign(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Error.Kind != types.KindConflict {
		t.Fatalf("unexpected kind %q", body.Error.Kind)
	}
}
