package repo

import (
	"context"
	"strconv"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/jackc/pgx/v5"
)

// versionKey is the row holding the settings version. It is not a setting.
const versionKey = "version"

type SettingsRepo struct {
	db DB
}

func NewSettingsRepo(db DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Load returns every stored value. Unparsable values are returned as is and
// left to normalization.
func (r *SettingsRepo) Load(ctx context.Context) (_ models.StoredSettings, err error) {
	const op = "SettingsRepo.Load"
	defer observe(op, time.Now(), &err)

	rows, err := TxorDB(ctx, r.db).Query(ctx, `SELECT key, value FROM manager_settings`)
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
// expected and returns the new version.
func (r *SettingsRepo) Replace(ctx context.Context, expected int64, values map[string]string, at time.Time) (_ int64, err error) {
	const op = "SettingsRepo.Replace"
	defer observe(op, time.Now(), &err)

	next := expected + 1
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO manager_settings (key, value, updated_at) VALUES ($1, '0', $2) ON CONFLICT (key) DO NOTHING`,
			versionKey, at); err != nil {
			return err
		}

		var raw string
		err := tx.QueryRow(ctx, `SELECT value FROM manager_settings WHERE key = $1 FOR UPDATE`, versionKey).Scan(&raw)
		if err != nil {
			return err
		}
		current, _ := strconv.ParseInt(raw, 10, 64)
		if current != expected {
			return types.ErrSettingsChanged
		}

		batch := &pgx.Batch{}
		upsert := `
			INSERT INTO manager_settings (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
		for key, value := range values {
			batch.Queue(upsert, key, value, at)
		}
		batch.Queue(upsert, versionKey, strconv.FormatInt(next, 10), at)

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
