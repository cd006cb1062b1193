package literepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) GetReportData(ctx context.Context, window models.Window) (_ *models.ReportData, err error) {
	const op = "AdminRepo.GetReportData"
	defer observe(op, time.Now(), &err)

	q := TxorDB(ctx, r.db)
	data := &models.ReportData{DriverCounts: map[string]int{}}

	rows, err := q.QueryContext(ctx, `SELECT status, count(*) FROM drivers GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err = rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		data.DriverCounts[status] = n
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT count(*),
		       coalesce(sum(status IN ('ASSIGNED', 'ACCEPTED', 'PICKED_UP', 'EN_ROUTE')), 0)
		FROM orders`).Scan(&data.TotalOrders, &data.ActiveOrders)
	if err != nil {
		return nil, err
	}

	start, end := window.Start.UTC(), window.End.UTC()
	rows, err = q.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE (created_at >= ?1 AND created_at < ?2)
		   OR (delivered_at >= ?1 AND delivered_at < ?2)
		   OR (cancelled_at >= ?1 AND cancelled_at < ?2)`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data.Orders, err = collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return data, nil
}
