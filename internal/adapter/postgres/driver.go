package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const driverColumns = `id, name, phone, email, status, latitude, longitude, last_active_at, is_active, created_at, updated_at`

var errEmailTaken = fmt.Errorf("%w: email is already registered", types.ErrConflict)

type DriverRepo struct {
	db DB
}

func NewDriverRepo(db DB) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) Create(ctx context.Context, d *models.Driver) (err error) {
	const op = "DriverRepo.Create"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO drivers (id, name, phone, email, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		d.ID, d.Name, d.Phone, d.Email, d.Status.String(), d.IsActive, d.CreatedAt, d.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return errEmailTaken
	}
	return err
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Driver, err error) {
	const op = "DriverRepo.Get"
	defer observe(op, time.Now(), &err)

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func (r *DriverRepo) List(ctx context.Context, f models.DriverFilter) (_ []models.Driver, _ models.Metadata, err error) {
	const op = "DriverRepo.List"
	defer observe(op, time.Now(), &err)

	var status *string
	if f.Status != nil {
		s := f.Status.String()
		status = &s
	}

	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		FROM drivers
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY %s %s, id ASC
		LIMIT $2 OFFSET $3`, driverColumns, f.SortColumn(), f.SortDirection())

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, status, f.Limit(), f.Offset())
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	total := 0
	drivers := make([]models.Driver, 0, f.Limit())
	for rows.Next() {
		var (
			d      models.Driver
			status string
		)
		if err := rows.Scan(&total, &d.ID, &d.Name, &d.Phone, &d.Email, &status, &d.Latitude, &d.Longitude,
			&d.LastActiveAt, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, models.Metadata{}, err
		}
		d.Status = types.DriverStatus(status)
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, err
	}

	return drivers, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

// ListAvailable returns ONLINE active drivers, longest idle first.
func (r *DriverRepo) ListAvailable(ctx context.Context, limit int) (_ []models.Driver, err error) {
	const op = "DriverRepo.ListAvailable"
	defer observe(op, time.Now(), &err)

	query := `
		SELECT ` + driverColumns + `
		FROM drivers
		WHERE status = 'ONLINE' AND is_active
		ORDER BY last_active_at ASC NULLS FIRST, id ASC
		LIMIT $1`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// SwapStatus moves the driver from one status to another only while the row
// still holds from (and is active, when requireActive is set).
func (r *DriverRepo) SwapStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus, requireActive bool, at time.Time) (_ *models.Driver, err error) {
	const op = "DriverRepo.SwapStatus"
	defer observe(op, time.Now(), &err)

	q := TxorDB(ctx, r.db)
	query := `
		UPDATE drivers
		SET status = $3, last_active_at = $4, updated_at = $4
		WHERE id = $1 AND status = $2 AND (NOT $5::boolean OR is_active)
		RETURNING ` + driverColumns

	d, err := scanDriver(q.QueryRow(ctx, query, id, from.String(), to.String(), at, requireActive))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return nil, r.missingOrChanged(ctx, q, id)
}

func (r *DriverRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) (_ *models.Driver, err error) {
	const op = "DriverRepo.SetActive"
	defer observe(op, time.Now(), &err)

	query := `UPDATE drivers SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING ` + driverColumns
	d, err := scanDriver(TxorDB(ctx, r.db).QueryRow(ctx, query, id, active, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func (r *DriverRepo) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.LocationUpdate) (_ *models.Driver, err error) {
	const op = "DriverRepo.UpdateLocation"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE drivers
		SET latitude = $2, longitude = $3, last_active_at = $4, updated_at = $4
		WHERE id = $1
		RETURNING ` + driverColumns

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRow(ctx, query, id, loc.Latitude, loc.Longitude, loc.At))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	return d, err
}

func (r *DriverRepo) missingOrChanged(ctx context.Context, q Querier, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM drivers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return types.ErrDriverNotFound
	}
	return types.ErrDriverChanged
}

func scanDriver(row pgx.Row) (*models.Driver, error) {
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
