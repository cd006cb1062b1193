package literepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/adapter/sqlutil"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

const orderColumns = `id, customer_name, delivery_address, order_value, distance_km, status,
	assigned_driver_id, delivery_fee, driver_pay, estimated_seconds, actual_seconds,
	created_at, accepted_at, picked_up_at, delivered_at, cancelled_at, updated_at`

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) (err error) {
	const op = "OrderRepo.Create"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO orders (id, customer_name, delivery_address, order_value, distance_km, status,
			assigned_driver_id, delivery_fee, driver_pay, estimated_seconds, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12)`

	_, err = TxorDB(ctx, r.db).ExecContext(ctx, query,
		o.ID, o.CustomerName, o.DeliveryAddress, o.OrderValue, o.DistanceKm, o.Status.String(),
		o.AssignedDriverID, o.DeliveryFee, o.DriverPay, sqlutil.Seconds(o.EstimatedTime),
		o.CreatedAt.UTC(), o.UpdatedAt.UTC())
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Order, err error) {
	const op = "OrderRepo.Get"
	defer observe(op, time.Now(), &err)

	o, err := scanOrder(TxorDB(ctx, r.db).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?1`, id))
	if errors.Is(err, sql.ErrNoRows) {
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
		where = append(where, fmt.Sprintf("status = ?%d", len(args)))
	}
	if f.DriverID != nil {
		args = append(args, *f.DriverID)
		where = append(where, fmt.Sprintf("assigned_driver_id = ?%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	q := TxorDB(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM orders `+cond, args...).Scan(&total); err != nil {
		return nil, models.Metadata{}, err
	}

	args = append(args, f.Limit(), f.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY %s %s, id ASC LIMIT ?%d OFFSET ?%d`,
		orderColumns, cond, f.SortColumn(), f.SortDirection(), len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return orders, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (r *OrderRepo) Swap(ctx context.Context, sw models.OrderSwap) (_ *models.Order, err error) {
	const op = "OrderRepo.Swap"
	defer observe(op, time.Now(), &err)

	sw.UpdatedAt = sw.UpdatedAt.UTC()
	for _, t := range []**time.Time{&sw.AcceptedAt, &sw.PickedUpAt, &sw.DeliveredAt, &sw.CancelledAt} {
		if *t != nil {
			u := (**t).UTC()
			*t = &u
		}
	}

	q := TxorDB(ctx, r.db)
	query, args := sqlutil.OrderSwap(sw, sqlutil.Numbered, orderColumns)

	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	found, err := exists(ctx, q, "orders", sw.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrOrderNotFound
	}
	return nil, types.ErrOrderChanged
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row scanner) (*models.Order, error) {
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
