package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/Temutjin2k/dispatch-ops/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// DB is what the repositories need from *pgxpool.Pool.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxorDB returns the transaction carried by ctx, if any, and db otherwise.
func TxorDB(ctx context.Context, db DB) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// observe records the query metric and classifies err. Domain errors pass
// through; anything else becomes a persistence failure.
func observe(op string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery("postgres", op, *err, time.Since(start))
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
