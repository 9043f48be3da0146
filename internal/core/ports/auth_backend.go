package ports

import (
	"context"

	"github.com/staffdesk/ops-system/internal/core/domain"
)

// Principal is the identity handle returned by the hosted auth backend
// after a successful sign-in.
type Principal struct {
	ID    string
	Email string
}

// AuthBackend is the hosted authentication service. Failures carry fault
// codes; in particular a transport failure during sign-in surfaces as
// fault.NetworkUnavailable.
type AuthBackend interface {
	SignIn(ctx context.Context, email, secret string) (*Principal, error)
	SignOut(ctx context.Context) error

	// OnStateChanged registers a callback invoked whenever the current
	// principal changes (sign-in, sign-out, token expiry). The callback
	// receives nil when no principal is signed in. The returned function
	// cancels the subscription.
	OnStateChanged(fn func(*Principal)) (unsubscribe func())
}

// RoleRepository resolves per-principal role records.
type RoleRepository interface {
	// Find returns the principal's role, or domain.ErrRoleNotFound when
	// no role record exists yet.
	Find(ctx context.Context, principalID string) (domain.Role, error)
	// CreateDefault writes the default EMPLOYEE role record for a fresh
	// principal.
	CreateDefault(ctx context.Context, principal Principal) error
}
