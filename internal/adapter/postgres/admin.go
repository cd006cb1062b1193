package repo

import (
	"context"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

type readOnlyTx interface {
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

type AdminRepo struct {
	db  DB
	trm readOnlyTx
}

func NewAdminRepo(db DB, trm readOnlyTx) *AdminRepo {
	return &AdminRepo{db: db, trm: trm}
}

// GetReportData reads the counters and the orders touched inside window in
// one read-only snapshot.
func (r *AdminRepo) GetReportData(ctx context.Context, window models.Window) (_ *models.ReportData, err error) {
	const op = "AdminRepo.GetReportData"
	defer observe(op, time.Now(), &err)

	data := &models.ReportData{DriverCounts: map[string]int{}}

	err = r.trm.DoReadOnly(ctx, func(ctx context.Context) error {
		q := TxorDB(ctx, r.db)

		rows, err := q.Query(ctx, `SELECT status, count(*) FROM drivers GROUP BY status`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var (
				status string
				n      int
			)
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return err
			}
			data.DriverCounts[status] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		err = q.QueryRow(ctx, `
			SELECT count(*),
			       count(*) FILTER (WHERE status IN ('ASSIGNED', 'ACCEPTED', 'PICKED_UP', 'EN_ROUTE'))
			FROM orders`).Scan(&data.TotalOrders, &data.ActiveOrders)
		if err != nil {
			return err
		}

		rows, err = q.Query(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			WHERE (created_at >= $1 AND created_at < $2)
			   OR (delivered_at >= $1 AND delivered_at < $2)
			   OR (cancelled_at >= $1 AND cancelled_at < $2)`, window.Start, window.End)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			data.Orders = append(data.Orders, *o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
