package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConstraintHelpers(t *testing.T) {
	wrapped := func(code string) error {
		return fmt.Errorf("repo: %w", &pgconn.PgError{Code: code})
	}

	if !IsForeignKeyViolation(wrapped("23503")) || IsForeignKeyViolation(wrapped("23505")) {
		t.Fatalf("foreign key detection is wrong")
	}
	if !IsUniqueViolation(wrapped("23505")) || IsUniqueViolation(errors.New("23505")) {
		t.Fatalf("unique detection is wrong")
	}
	if !IsCheckViolation(wrapped("23514")) || IsCheckViolation(nil) {
		t.Fatalf("check detection is wrong")
	}
}
