package sqlutil

import (
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

func TestOrderSwap_Assign(t *testing.T) {
	driver := uuid.New()
	sw := models.OrderSwap{
		ID:                uuid.New(),
		From:              types.OrderCreated,
		To:                types.OrderAssigned,
		RequireUnassigned: true,
		SetDriver:         &driver,
		UpdatedAt:         time.Now(),
	}

	query, args := OrderSwap(sw, Dollar, "id")

	want := "UPDATE orders SET status = $3, updated_at = $4, assigned_driver_id = $5 " +
		"WHERE id = $1 AND status = $2 AND assigned_driver_id IS NULL RETURNING id"
	if query != want {
		t.Fatalf("got\n%s\nwant\n%s", query, want)
	}
	if len(args) != 5 || args[1] != "CREATED" || args[2] != "ASSIGNED" || args[4] != driver {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestOrderSwap_Deliver(t *testing.T) {
	at := time.Now()
	fee, pay := 130.0, 78.0
	actual := 20*time.Minute + 500*time.Millisecond

	query, args := OrderSwap(models.OrderSwap{
		ID:          uuid.New(),
		From:        types.OrderEnRoute,
		To:          types.OrderDelivered,
		DeliveredAt: &at,
		DeliveryFee: &fee,
		DriverPay:   &pay,
		ActualTime:  &actual,
		UpdatedAt:   at,
	}, Numbered, "id")

	for _, frag := range []string{"delivered_at = ?5", "delivery_fee = ?6", "driver_pay = ?7", "actual_seconds = ?8"} {
		if !strings.Contains(query, frag) {
			t.Fatalf("query %q is missing %q", query, frag)
		}
	}
	if strings.Contains(query, "IS NULL") {
		t.Fatalf("delivery must not require an unassigned order")
	}
	if args[7] != int64(1200) {
		t.Fatalf("actual time must be stored in whole seconds, got %v", args[7])
	}
}

func TestOrderSwap_Cancel(t *testing.T) {
	at := time.Now()
	query, _ := OrderSwap(models.OrderSwap{
		ID:          uuid.New(),
		From:        types.OrderAccepted,
		To:          types.OrderCancelled,
		ClearDriver: true,
		CancelledAt: &at,
		UpdatedAt:   at,
	}, Dollar, "id")

	if !strings.Contains(query, "assigned_driver_id = NULL") || !strings.Contains(query, "cancelled_at = $5") {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	if Seconds(nil) != nil || Duration(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	d := 90 * time.Second
	sec := Seconds(&d).(int64)
	if got := Duration(&sec); *got != d {
		t.Fatalf("got %v want %v", *got, d)
	}
}
