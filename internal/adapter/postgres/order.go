package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/adapter/sqlutil"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, customer_name, delivery_address, order_value::float8, distance_km, status,
	assigned_driver_id, delivery_fee::float8, driver_pay::float8, estimated_seconds, actual_seconds,
	created_at, accepted_at, picked_up_at, delivered_at, cancelled_at, updated_at`

type OrderRepo struct {
	db DB
}

func NewOrderRepo(db DB) *OrderRepo {
	return &OrderRepo{
		db: db,
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) (err error) {
	const op = "OrderRepo.Create"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO orders (id, customer_name, delivery_address, order_value, distance_km, status,
			assigned_driver_id, delivery_fee, driver_pay, estimated_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		o.ID,
		o.CustomerName,
		o.DeliveryAddress,
		o.OrderValue,
		o.DistanceKm,
		o.Status.String(),
		o.AssignedDriverID,
		o.DeliveryFee,
		o.DriverPay,
		sqlutil.Seconds(o.EstimatedTime),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if postgres.IsCheckViolation(err) {
		return fmt.Errorf("%w: order fields out of range", types.ErrValidation)
	}
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Order, err error) {
	const op = "OrderRepo.Get"
	defer observe(op, time.Now(), &err)

	row := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrOrderNotFound
	}
	return o, err
}

func (r *OrderRepo) List(ctx context.Context, f models.OrderFilter) (_ []models.Order, _ models.Metadata, err error) {
	const op = "OrderRepo.List"
	defer observe(op, time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, f.Status.String())
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.DriverID != nil {
		args = append(args, *f.DriverID)
		where = append(where, fmt.Sprintf("assigned_driver_id = $%d", len(args)))
	}

	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	args = append(args, f.Limit(), f.Offset())
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		FROM orders
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d`,
		orderColumns, cond, f.SortColumn(), f.SortDirection(), len(args)-1, len(args))

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	total := 0
	orders := make([]models.Order, 0, f.Limit())
	for rows.Next() {
		o, err := scanOrderWithTotal(rows, &total)
		if err != nil {
			return nil, models.Metadata{}, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, err
	}

	return orders, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

// Swap applies the conditional update. Zero matched rows means either the
// order is gone or someone else changed it first.
func (r *OrderRepo) Swap(ctx context.Context, sw models.OrderSwap) (_ *models.Order, err error) {
	const op = "OrderRepo.Swap"
	defer observe(op, time.Now(), &err)

	q := TxorDB(ctx, r.db)
	query, args := sqlutil.OrderSwap(sw, sqlutil.Dollar, orderColumns)

	o, err := scanOrder(q.QueryRow(ctx, query, args...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, sw.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.ErrOrderNotFound
	}
	return nil, types.ErrOrderChanged
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o                models.Order
		status           string
		estimated, acted *int64
	)
	if err := row.Scan(
		&o.ID, &o.CustomerName, &o.DeliveryAddress, &o.OrderValue, &o.DistanceKm, &status,
		&o.AssignedDriverID, &o.DeliveryFee, &o.DriverPay, &estimated, &acted,
		&o.CreatedAt, &o.AcceptedAt, &o.PickedUpAt, &o.DeliveredAt, &o.CancelledAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	o.EstimatedTime = sqlutil.Duration(estimated)
	o.ActualTime = sqlutil.Duration(acted)
	return &o, nil
}

func scanOrderWithTotal(rows pgx.Rows, total *int) (*models.Order, error) {
	var (
		o                models.Order
		status           string
		estimated, acted *int64
	)
	if err := rows.Scan(
		total,
		&o.ID, &o.CustomerName, &o.DeliveryAddress, &o.OrderValue, &o.DistanceKm, &status,
		&o.AssignedDriverID, &o.DeliveryFee, &o.DriverPay, &estimated, &acted,
		&o.CreatedAt, &o.AcceptedAt, &o.PickedUpAt, &o.DeliveredAt, &o.CancelledAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	o.EstimatedTime = sqlutil.Duration(estimated)
	o.ActualTime = sqlutil.Duration(acted)
	return &o, nil
}
