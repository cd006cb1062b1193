package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type driverSet map[uuid.UUID]bool

func (d driverSet) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	active, ok := d[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return &models.Driver{ID: id, IsActive: active}, nil
}

func TestIssueAndValidate(t *testing.T) {
	manager := models.Identity{ID: uuid.New(), Role: types.RoleManager}
	s := NewTokenService("secret", driverSet{}, time.Hour, logger.Nop())

	token, exp, err := s.Issue(context.Background(), manager)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if exp.IsZero() {
		t.Fatalf("expiry must be set")
	}

	got, err := s.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if *got != manager {
		t.Fatalf("got %+v want %+v", got, manager)
	}
}

func TestIssue_DriverGate(t *testing.T) {
	active, disabled := uuid.New(), uuid.New()
	s := NewTokenService("secret", driverSet{active: true, disabled: false}, time.Hour, logger.Nop())

	if _, _, err := s.Issue(context.Background(), models.Identity{ID: active, Role: types.RoleDriver}); err != nil {
		t.Fatalf("active driver: %v", err)
	}
	if _, _, err := s.Issue(context.Background(), models.Identity{ID: disabled, Role: types.RoleDriver}); !errors.Is(err, types.ErrAccountDisabled) {
		t.Fatalf("expected account disabled, got %v", err)
	}
	if _, _, err := s.Issue(context.Background(), models.Identity{ID: uuid.New(), Role: types.RoleDriver}); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := s.Issue(context.Background(), models.Identity{ID: uuid.New(), Role: "ADMIN"}); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	s := NewTokenService("secret", nil, time.Hour, logger.Nop())
	id := models.Identity{ID: uuid.New(), Role: types.RoleManager}

	token, _, err := s.Issue(context.Background(), id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewTokenService("another-secret", nil, time.Hour, logger.Nop())
	if _, err := other.Validate(context.Background(), token); !errors.Is(err, types.ErrUnauthenticated) {
		t.Fatalf("wrong secret must be unauthenticated, got %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Validate(context.Background(), token); !errors.Is(err, types.ErrUnauthenticated) {
		t.Fatalf("expired token must be unauthenticated, got %v", err)
	}

	if _, err := s.Validate(context.Background(), "not.a.token"); !errors.Is(err, types.ErrUnauthenticated) {
		t.Fatalf("garbage must be unauthenticated, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: id.ID.String(), Role: "MANAGER"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.Validate(context.Background(), unsigned); !errors.Is(err, types.ErrUnauthenticated) {
		t.Fatalf("unsigned token must be rejected, got %v", err)
	}
}
