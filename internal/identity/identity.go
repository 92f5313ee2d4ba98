// Package identity resolves the authenticated principal behind a request.
//
// Resolution is a pure read of the bearer credential. The resolved Identity is
// threaded through context.Context by the auth middleware; nothing in this
// package keeps a process-wide notion of the current user.
package identity

import (
	"context"
	"time"

	"freightdesk/pkg/domain"
)

// Identity is the per-request principal derived from a verified token.
// An empty OrgID means the caller acts in personal scope.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	OrgID     string
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

// HasOrganization reports whether the identity carries an organization claim.
func (i *Identity) HasOrganization() bool {
	return i != nil && i.OrgID != ""
}

type identityKey struct{}

// ContextKeyIdentity is exported for tests that need context.WithValue directly.
var ContextKeyIdentity = identityKey{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// FromContext returns the identity stored by the auth middleware, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(*Identity)
	if !ok || id == nil || id.Subject == "" {
		return nil, false
	}
	return id, true
}
