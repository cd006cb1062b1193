package literepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/sqlite"
	"github.com/google/uuid"
)

var errEarningExists = fmt.Errorf("%w: order already has an earning", types.ErrConflict)

type EarningRepo struct {
	db *sql.DB
}

func NewEarningRepo(db *sql.DB) *EarningRepo {
	return &EarningRepo{db: db}
}

func (r *EarningRepo) Create(ctx context.Context, e *models.Earning) (err error) {
	const op = "EarningRepo.Create"
	defer observe(op, time.Now(), &err)

	_, err = TxorDB(ctx, r.db).ExecContext(ctx,
		`INSERT INTO earnings (id, driver_id, order_id, amount, earned_at) VALUES (?1, ?2, ?3, ?4, ?5)`,
		e.ID, e.DriverID, e.OrderID, e.Amount, e.EarnedAt.UTC())
	if sqlite.IsUniqueViolation(err) {
		return errEarningExists
	}
	return err
}

func (r *EarningRepo) ListByDriver(ctx context.Context, driverID uuid.UUID, f models.Filters) (_ []models.Earning, _ models.Metadata, err error) {
	const op = "EarningRepo.ListByDriver"
	defer observe(op, time.Now(), &err)

	q := TxorDB(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM earnings WHERE driver_id = ?1`, driverID).Scan(&total); err != nil {
		return nil, models.Metadata{}, err
	}

	query := fmt.Sprintf(`
		SELECT id, driver_id, order_id, amount, earned_at
		FROM earnings
		WHERE driver_id = ?1
		ORDER BY %s %s, id ASC
		LIMIT ?2 OFFSET ?3`, f.SortColumn(), f.SortDirection())

	rows, err := q.QueryContext(ctx, query, driverID, f.Limit(), f.Offset())
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	var earnings []models.Earning
	for rows.Next() {
		var e models.Earning
		if err := rows.Scan(&e.ID, &e.DriverID, &e.OrderID, &e.Amount, &e.EarnedAt); err != nil {
			return nil, models.Metadata{}, err
		}
		earnings = append(earnings, e)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, err
	}
	return earnings, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}
