package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving a service wraps exactly one of them.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidIssueType   = errors.New("invalid issue type")
	ErrInvalidIssueStatus = errors.New("invalid issue status")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrNotFound           = errors.New("not found")
	ErrPersistence        = errors.New("persistence failure")
)

var (
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrDriverNotFound   = fmt.Errorf("driver %w", ErrNotFound)
	ErrIssueNotFound    = fmt.Errorf("issue %w", ErrNotFound)
	ErrSettingsNotFound = fmt.Errorf("settings %w", ErrNotFound)

	ErrOrderAlreadyAssigned = fmt.Errorf("%w: order is no longer awaiting assignment", ErrConflict)
	ErrOrderChanged         = fmt.Errorf("%w: order was modified concurrently", ErrConflict)
	ErrDriverUnavailable    = fmt.Errorf("%w: driver is not available for assignment", ErrConflict)
	ErrDriverChanged        = fmt.Errorf("%w: driver was modified concurrently", ErrConflict)
	ErrSettingsChanged      = fmt.Errorf("%w: settings were modified concurrently", ErrConflict)

	ErrOrderTerminal       = fmt.Errorf("%w: order is already finished", ErrInvalidTransition)
	ErrAssignViaTransition = fmt.Errorf("%w: use assignment to move an order to ASSIGNED", ErrInvalidTransition)
	ErrDriverOnJob         = fmt.Errorf("%w: driver is on a job", ErrInvalidTransition)
	ErrDriverStatusManual  = fmt.Errorf("%w: ON_JOB is set only by order assignment", ErrInvalidTransition)

	ErrNotOrderDriver = fmt.Errorf("%w: order is assigned to another driver", ErrForbidden)
	ErrNotSelf        = fmt.Errorf("%w: drivers may act only on themselves", ErrForbidden)
	ErrRoleRequired   = fmt.Errorf("%w: insufficient role", ErrForbidden)

	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrNoIdentity   = fmt.Errorf("%w: authorization required", ErrUnauthenticated)
)

// Kind is the stable, client-visible error category.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindInvalidInput       Kind = "InvalidInput"
	KindConflict           Kind = "Conflict"
	KindInvalidTransition  Kind = "InvalidTransition"
	KindInvalidIssueType   Kind = "InvalidIssueType"
	KindInvalidIssueStatus Kind = "InvalidIssueStatus"
	KindUnauthenticated    Kind = "Unauthenticated"
	KindForbidden          Kind = "Forbidden"
	KindAccountDisabled    Kind = "AccountDisabled"
	KindNotFound           Kind = "NotFound"
	KindPersistence        Kind = "PersistenceFailure"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrInvalidInput, KindInvalidInput},
	{ErrConflict, KindConflict},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrInvalidIssueType, KindInvalidIssueType},
	{ErrInvalidIssueStatus, KindInvalidIssueStatus},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrForbidden, KindForbidden},
	{ErrAccountDisabled, KindAccountDisabled},
	{ErrNotFound, KindNotFound},
	{ErrPersistence, KindPersistence},
}

// KindOf classifies err. Unknown errors are reported as persistence failures:
// they are surfaced as generic failures without detail.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindPersistence
}

// Persistence wraps a storage error so it classifies as PersistenceFailure.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Validation builds a ValidationError for a single field.
func Validation(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}
