package literepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/sqlite"
	"github.com/google/uuid"
)

const driverColumns = `id, name, phone, email, status, latitude, longitude, last_active_at, is_active, created_at, updated_at`

var errEmailTaken = fmt.Errorf("%w: email is already registered", types.ErrConflict)

type DriverRepo struct {
	db *sql.DB
}

func NewDriverRepo(db *sql.DB) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) Create(ctx context.Context, d *models.Driver) (err error) {
	const op = "DriverRepo.Create"
	defer observe(op, time.Now(), &err)

	_, err = TxorDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO drivers (id, name, phone, email, status, is_active, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)`,
		d.ID, d.Name, d.Phone, d.Email, d.Status.String(), d.IsActive, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	if sqlite.IsUniqueViolation(err) {
		return errEmailTaken
	}
	return err
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Driver, err error) {
	const op = "DriverRepo.Get"
	defer observe(op, time.Now(), &err)

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func (r *DriverRepo) List(ctx context.Context, f models.DriverFilter) (_ []models.Driver, _ models.Metadata, err error) {
	const op = "DriverRepo.List"
	defer observe(op, time.Now(), &err)

	var status any
	if f.Status != nil {
		status = f.Status.String()
	}

	q := TxorDB(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM drivers WHERE (?1 IS NULL OR status = ?1)`, status).Scan(&total); err != nil {
		return nil, models.Metadata{}, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM drivers
		WHERE (?1 IS NULL OR status = ?1)
		ORDER BY %s %s, id ASC
		LIMIT ?2 OFFSET ?3`, driverColumns, f.SortColumn(), f.SortDirection())

	rows, err := q.QueryContext(ctx, query, status, f.Limit(), f.Offset())
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	drivers, err := collectDrivers(rows)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return drivers, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (r *DriverRepo) ListAvailable(ctx context.Context, limit int) (_ []models.Driver, err error) {
	const op = "DriverRepo.ListAvailable"
	defer observe(op, time.Now(), &err)

	rows, err := TxorDB(ctx, r.db).QueryContext(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE status = 'ONLINE' AND is_active
		ORDER BY last_active_at ASC NULLS FIRST, id ASC
		LIMIT ?1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDrivers(rows)
}

func (r *DriverRepo) SwapStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus, requireActive bool, at time.Time) (_ *models.Driver, err error) {
	const op = "DriverRepo.SwapStatus"
	defer observe(op, time.Now(), &err)

	q := TxorDB(ctx, r.db)
	d, err := scanDriver(q.QueryRowContext(ctx, `
		UPDATE drivers
		SET status = ?3, last_active_at = ?4, updated_at = ?4
		WHERE id = ?1 AND status = ?2 AND (NOT ?5 OR is_active)
		RETURNING `+driverColumns,
		id, from.String(), to.String(), at.UTC(), requireActive))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	found, err := exists(ctx, q, "drivers", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrDriverNotFound
	}
	return nil, types.ErrDriverChanged
}

func (r *DriverRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (_ *models.Driver, err error) {
	const op = "DriverRepo.SetActive"
	defer observe(op, time.Now(), &err)

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRowContext(ctx,
		`UPDATE drivers SET is_active = ?2, updated_at = ?3 WHERE id = ?1 RETURNING `+driverColumns,
		id, active, at.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func (r *DriverRepo) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.LocationUpdate) (_ *models.Driver, err error) {
	const op = "DriverRepo.UpdateLocation"
	defer observe(op, time.Now(), &err)

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRowContext(ctx, `
		UPDATE drivers
		SET latitude = ?2, longitude = ?3, last_active_at = ?4, updated_at = ?4
		WHERE id = ?1
		RETURNING `+driverColumns,
		id, loc.Latitude, loc.Longitude, loc.At.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func collectDrivers(rows *sql.Rows) ([]models.Driver, error) {
	var drivers []models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

func scanDriver(row scanner) (*models.Driver, error) {
	var (
		d      models.Driver
		status string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Email, &status, &d.Latitude, &d.Longitude,
		&d.LastActiveAt, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = types.DriverStatus(status)
	return &d, nil
}
