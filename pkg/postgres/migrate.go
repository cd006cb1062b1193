package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migration file names: 0001_name.up.sql
var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

// migrateLockID keys the session advisory lock held while migrating.
const migrateLockID = 0x6469737061746368

// Migrate applies every pending *.up.sql file of fsys in version order. Each
// file runs in its own transaction together with its bookkeeping row.
// Concurrent callers are serialized by an advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]int, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, int64(migrateLockID)); err != nil {
		return nil, fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, int64(migrateLockID))
	}()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}

	type mig struct {
		version int
		file    string
	}
	var pending []mig
	for _, f := range files {
		m := migFileRe.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		v, _ := strconv.Atoi(m[1])
		pending = append(pending, mig{version: v, file: f})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	var applied []int
	for _, m := range pending {
		var done bool
		if err := conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).Scan(&done); err != nil {
			return applied, err
		}
		if done {
			continue
		}

		text, err := fs.ReadFile(fsys, m.file)
		if err != nil {
			return applied, err
		}

		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(text)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %04d failed: %w", m.version, err)
		}
		applied = append(applied, m.version)
	}

	return applied, nil
}
