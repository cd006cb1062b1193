package literepo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

const versionKey = "version"

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Load(ctx context.Context) (_ models.StoredSettings, err error) {
	const op = "SettingsRepo.Load"
	defer observe(op, time.Now(), &err)

	rows, err := TxorDB(ctx, r.db).QueryContext(ctx, `SELECT key, value FROM manager_settings`)
	if err != nil {
		return models.StoredSettings{}, err
	}
	defer rows.Close()

	stored := models.StoredSettings{Values: map[string]string{}}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.StoredSettings{}, err
		}
		if key == versionKey {
			stored.Version, _ = strconv.ParseInt(value, 10, 64)
			continue
		}
		stored.Values[key] = value
	}
	return stored, rows.Err()
}

// Replace writes the full set of values if the stored version still equals
// expected. The single-connection pool makes the check and the write atomic.
func (r *SettingsRepo) Replace(ctx context.Context, expected int64, values map[string]string, at time.Time) (_ int64, err error) {
	const op = "SettingsRepo.Replace"
	defer observe(op, time.Now(), &err)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM manager_settings WHERE key = ?1`, versionKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		raw, err = "0", nil
	case err != nil:
		return 0, err
	}
	if current, _ := strconv.ParseInt(raw, 10, 64); current != expected {
		return 0, types.ErrSettingsChanged
	}

	next := expected + 1
	upsert := `
		INSERT INTO manager_settings (key, value, updated_at) VALUES (?1, ?2, ?3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	for key, value := range values {
		if _, err = tx.ExecContext(ctx, upsert, key, value, at.UTC()); err != nil {
			return 0, err
		}
	}
	if _, err = tx.ExecContext(ctx, upsert, versionKey, strconv.FormatInt(next, 10), at.UTC()); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}
