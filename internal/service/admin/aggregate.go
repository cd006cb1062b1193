package admin

import (
	"math"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

// TodayWindow returns [00:00 UTC of now's day, now).
func TodayWindow(now time.Time) models.Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return models.Window{Start: start, End: now}
}

// Aggregate computes the overview from a raw snapshot. It is a pure function:
// financial totals and the on-time rate cover orders delivered in the window.
func Aggregate(data *models.ReportData, window models.Window, version int64) *models.OverviewResponse {
	res := &models.OverviewResponse{
		Timestamp:          window.End,
		Window:             window,
		SettingsVersion:    version,
		DriverDistribution: make(map[string]int, 3),
	}

	for _, st := range types.AllDriverStatuses() {
		res.DriverDistribution[st.String()] = data.DriverCounts[st.String()]
	}

	res.Orders.Total = data.TotalOrders
	res.Orders.Active = data.ActiveOrders

	var (
		valueCents, feeCents, payCents int64
		onTime                         int
	)
	for i := range data.Orders {
		o := &data.Orders[i]

		if window.Contains(o.CreatedAt) {
			res.Orders.CreatedInWindow++
		}
		if o.Status == types.OrderCancelled && o.CancelledAt != nil && window.Contains(*o.CancelledAt) {
			res.Orders.Cancelled++
		}
		if o.Status != types.OrderDelivered || o.DeliveredAt == nil || !window.Contains(*o.DeliveredAt) {
			continue
		}

		res.Orders.Delivered++
		valueCents += cents(o.OrderValue)
		if o.DeliveryFee != nil {
			feeCents += cents(*o.DeliveryFee)
		}
		if o.DriverPay != nil {
			payCents += cents(*o.DriverPay)
		}
		if o.OnTime() {
			onTime++
		}
	}

	profitCents := feeCents - payCents
	res.Financials = models.Financials{
		GrossRevenue:  money(valueCents + feeCents),
		DeliveryFees:  money(feeCents),
		DriverPayouts: money(payCents),
		Profit:        money(profitCents),
	}
	if feeCents > 0 {
		res.Financials.MarginPercent = percent(float64(profitCents) / float64(feeCents))
	}
	if res.Orders.Delivered > 0 {
		res.OnTimeRate = percent(float64(onTime) / float64(res.Orders.Delivered))
	}

	return res
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func money(c int64) float64 {
	return float64(c) / 100
}

// percent renders a ratio as a percentage with one decimal place.
func percent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}
