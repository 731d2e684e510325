package auth

import (
	"context"

	"github.com/prn-tf/academia/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated actor of a request.
type Identity struct {
	User    *domain.User
	Profile *domain.Profile
	Session *domain.Session

	// Token is the raw session token from the cookie.
	Token string
}

// Role returns the resolved role label.
func (i *Identity) Role() string {
	return ResolveRole(i.User, i.Profile)
}

// IsAdmin reports whether the actor may use administrator functions.
func (i *Identity) IsAdmin() bool {
	return IsAdmin(i.User, i.Profile)
}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
