package models

import (
	"context"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
)

// Identity is the authenticated caller.
type Identity struct {
	ID   uuid.UUID
	Role types.UserRole
}

func (i *Identity) IsManager() bool {
	return i != nil && i.Role == types.RoleManager
}

func (i *Identity) IsDriver() bool {
	return i != nil && i.Role == types.RoleDriver
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns nil for anonymous callers.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// CanActAs reports whether the caller may act on behalf of driverID.
// Managers and internal callers (no identity) may act for any driver.
func (i *Identity) CanActAs(driverID uuid.UUID) bool {
	if i == nil || i.Role == types.RoleManager {
		return true
	}
	return i.ID == driverID
}
