// Package literepo is the embedded SQLite storage backend. It implements the
// same repositories as the PostgreSQL adapter for single-node deployments and
// tests.
package literepo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/Temutjin2k/dispatch-ops/pkg/trm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema files, applied by sqlite.Open.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func TxorDB(ctx context.Context, db *sql.DB) Querier {
	tx, ok := ctx.Value(trm.SQLTxKey).(*sql.Tx)
	if !ok {
		return db
	}
	return tx
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery("sqlite", op, *err, time.Since(start))
	if *err == nil {
		return
	}
	for _, kind := range []error{types.ErrNotFound, types.ErrConflict, types.ErrValidation} {
		if errors.Is(*err, kind) {
			return
		}
	}
	*err = types.Persistence(op, *err)
}

func exists(ctx context.Context, q Querier, table string, id any) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM `+table+` WHERE id = ?1`, id).Scan(&n)
	return n > 0, err
}
