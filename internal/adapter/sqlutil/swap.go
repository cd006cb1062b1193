// Package sqlutil renders the statements shared by the SQL storage adapters.
package sqlutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar is the PostgreSQL style: $1, $2...
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Numbered is the SQLite style: ?1, ?2...
func Numbered(n int) string { return "?" + strconv.Itoa(n) }

// Seconds stores a duration as whole seconds.
func Seconds(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return int64(d.Seconds())
}

// Duration is the inverse of Seconds.
func Duration(sec *int64) *time.Duration {
	if sec == nil {
		return nil
	}
	d := time.Duration(*sec) * time.Second
	return &d
}

// OrderSwap renders a conditional UPDATE: it only matches the row while its
// status is sw.From (and it has no driver when RequireUnassigned is set), so a
// lost race updates zero rows. Only non-nil fields are written.
func OrderSwap(sw models.OrderSwap, ph Placeholder, returning string) (string, []any) {
	args := []any{sw.ID, sw.From.String(), sw.To.String(), sw.UpdatedAt}
	sets := []string{"status = " + ph(3), "updated_at = " + ph(4)}

	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, ph(len(args))))
	}

	switch {
	case sw.SetDriver != nil:
		set("assigned_driver_id", *sw.SetDriver)
	case sw.ClearDriver:
		sets = append(sets, "assigned_driver_id = NULL")
	}
	if sw.AcceptedAt != nil {
		set("accepted_at", *sw.AcceptedAt)
	}
	if sw.PickedUpAt != nil {
		set("picked_up_at", *sw.PickedUpAt)
	}
	if sw.DeliveredAt != nil {
		set("delivered_at", *sw.DeliveredAt)
	}
	if sw.CancelledAt != nil {
		set("cancelled_at", *sw.CancelledAt)
	}
	if sw.DeliveryFee != nil {
		set("delivery_fee", *sw.DeliveryFee)
	}
	if sw.DriverPay != nil {
		set("driver_pay", *sw.DriverPay)
	}
	if sw.ActualTime != nil {
		set("actual_seconds", Seconds(sw.ActualTime))
	}

	where := fmt.Sprintf("id = %s AND status = %s", ph(1), ph(2))
	if sw.RequireUnassigned {
		where += " AND assigned_driver_id IS NULL"
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE %s RETURNING %s", strings.Join(sets, ", "), where, returning)
	return query, args
}
