package admin

import (
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)

func delivered(value, fee, pay float64, estimate, actual *time.Duration, at time.Time) models.Order {
	return models.Order{
		OrderValue:    value,
		Status:        types.OrderDelivered,
		DeliveryFee:   &fee,
		DriverPay:     &pay,
		EstimatedTime: estimate,
		ActualTime:    actual,
		CreatedAt:     at.Add(-time.Hour),
		DeliveredAt:   &at,
	}
}

func TestTodayWindow(t *testing.T) {
	w := TodayWindow(time.Date(2026, 4, 2, 23, 59, 0, 0, time.FixedZone("ALMT", 5*3600)))
	if !w.Start.Equal(time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window must start at UTC midnight, got %v", w.Start)
	}
	if w.Contains(w.End) || !w.Contains(w.Start) {
		t.Fatalf("window must be half open")
	}
}

func TestAggregate_OnTimeRate(t *testing.T) {
	window := TodayWindow(now)
	at := now.Add(-2 * time.Hour)

	data := &models.ReportData{
		Orders: []models.Order{
			delivered(100, 60, 36, ptr(30*time.Minute), ptr(25*time.Minute), at),
			delivered(200, 70, 42, ptr(30*time.Minute), ptr(45*time.Minute), at),
		},
	}

	got := Aggregate(data, window, 1)
	if got.OnTimeRate != 50.0 {
		t.Fatalf("expected on-time rate 50.0, got %v", got.OnTimeRate)
	}
	if got.Orders.Delivered != 2 {
		t.Fatalf("expected 2 delivered, got %d", got.Orders.Delivered)
	}
}

func TestAggregate_MissingTimesCountAsOnTime(t *testing.T) {
	at := now.Add(-time.Hour)
	data := &models.ReportData{
		Orders: []models.Order{
			delivered(10, 5, 3, nil, ptr(time.Hour), at),
			delivered(10, 5, 3, ptr(time.Minute), nil, at),
			delivered(10, 5, 3, ptr(time.Minute), ptr(2*time.Minute), at),
		},
	}

	got := Aggregate(data, TodayWindow(now), 1)
	if got.OnTimeRate != 66.7 {
		t.Fatalf("expected 66.7, got %v", got.OnTimeRate)
	}
}

func TestAggregate_Financials(t *testing.T) {
	window := TodayWindow(now)
	at := now.Add(-time.Hour)
	yesterday := window.Start.Add(-time.Minute)

	data := &models.ReportData{
		DriverCounts: map[string]int{"ONLINE": 3, "ON_JOB": 1},
		TotalOrders:  10,
		ActiveOrders: 2,
		Orders: []models.Order{
			delivered(1200, 130, 78, nil, nil, at),
			delivered(300.10, 60.20, 36.12, nil, nil, at),
			// delivered before the window: only counted as created if in window
			delivered(999, 999, 999, nil, nil, yesterday),
			{Status: types.OrderCancelled, CreatedAt: at, CancelledAt: &at},
			{Status: types.OrderCreated, CreatedAt: at},
		},
	}

	got := Aggregate(data, window, 7)

	wantFin := models.Financials{
		GrossRevenue:  1690.30,
		DeliveryFees:  190.20,
		DriverPayouts: 114.12,
		Profit:        76.08,
		MarginPercent: 40.0,
	}
	if got.Financials != wantFin {
		t.Fatalf("got %+v want %+v", got.Financials, wantFin)
	}

	wantOrders := models.OrderMetrics{Total: 10, CreatedInWindow: 4, Active: 2, Delivered: 2, Cancelled: 1}
	if got.Orders != wantOrders {
		t.Fatalf("got %+v want %+v", got.Orders, wantOrders)
	}

	if got.DriverDistribution["OFFLINE"] != 0 || got.DriverDistribution["ONLINE"] != 3 || len(got.DriverDistribution) != 3 {
		t.Fatalf("unexpected distribution %v", got.DriverDistribution)
	}
	if got.SettingsVersion != 7 || !got.Timestamp.Equal(now) {
		t.Fatalf("unexpected header %+v", got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(&models.ReportData{}, TodayWindow(now), 0)
	if got.OnTimeRate != 0 || got.Financials.MarginPercent != 0 {
		t.Fatalf("empty window must report zeros, got %+v", got)
	}
}
