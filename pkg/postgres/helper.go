package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsForeignKeyViolation reports SQLSTATE 23503. Wrapped errors are unwrapped.
func IsForeignKeyViolation(err error) bool {
	return hasState(err, "23503")
}

// IsUniqueViolation reports SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	return hasState(err, "23505")
}

// IsCheckViolation reports SQLSTATE 23514.
func IsCheckViolation(err error) bool {
	return hasState(err, "23514")
}

func hasState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == code
}
