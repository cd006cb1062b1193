package trm

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKeySQLTx struct{}

// SQLTxKey carries the *sql.Tx of an SQLManager transaction.
var SQLTxKey = ctxKeySQLTx{}

// SQLManager is the database/sql counterpart of Manager, used by the
// embedded SQLite backend.
type SQLManager struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQLManager {
	return &SQLManager{db: db}
}

func (m *SQLManager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if existing := ctx.Value(SQLTxKey); existing != nil {
		if _, ok := existing.(*sql.Tx); !ok {
			return fmt.Errorf("invalid transaction type in context")
		}
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start new transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("failed to rollback tx: %v (original error: %w)", rbErr, err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", commitErr)
		}
	}()

	return fn(context.WithValue(ctx, SQLTxKey, tx))
}

// DoReadOnly exists for parity with Manager. SQLite serializes writers, so a
// plain transaction already gives a stable snapshot.
func (m *SQLManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}
