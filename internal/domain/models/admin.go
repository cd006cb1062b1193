package models

import "time"

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type OverviewResponse struct {
	Timestamp          time.Time      `json:"timestamp"`
	Window             Window         `json:"window"`
	SettingsVersion    int64          `json:"settings_version"`
	Orders             OrderMetrics   `json:"orders"`
	Financials         Financials     `json:"financials"`
	DriverDistribution map[string]int `json:"driver_distribution"`
	OnTimeRate         float64        `json:"on_time_rate"`
}

type OrderMetrics struct {
	Total           int `json:"total"`
	CreatedInWindow int `json:"created_in_window"`
	Active          int `json:"active"`
	Delivered       int `json:"delivered_in_window"`
	Cancelled       int `json:"cancelled_in_window"`
}

type Financials struct {
	GrossRevenue  float64 `json:"gross_revenue"` // order value plus delivery fees
	DeliveryFees  float64 `json:"delivery_fees"`
	DriverPayouts float64 `json:"driver_payouts"`
	Profit        float64 `json:"profit"`
	MarginPercent float64 `json:"margin_percent"`
}

// ReportData is the raw snapshot the aggregator works on. It is read without
// locking and may be slightly stale.
type ReportData struct {
	DriverCounts map[string]int
	TotalOrders  int
	ActiveOrders int
	Orders       []Order // orders created, delivered or cancelled inside the window
}
