package testutil

import (
	"context"
	"net/http"

	"freightdesk/internal/identity"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/requestcontext"
)

// IdentityOption adjusts a synthetic identity.
type IdentityOption func(*identity.Identity)

func InOrg(orgID string) IdentityOption {
	return func(id *identity.Identity) { id.OrgID = orgID }
}

func WithEmail(email string) IdentityOption {
	return func(id *identity.Identity) { id.Email = email }
}

func WithRoleClaim(r domain.Role) IdentityOption {
	return func(id *identity.Identity) { id.Role = r }
}

// As returns ctx carrying a synthetic identity for subject, as the auth
// middleware would after verifying a token.
func As(ctx context.Context, subject string, opts ...IdentityOption) context.Context {
	id := &identity.Identity{Subject: subject, Role: domain.RoleMember, TokenID: "jti-" + subject}
	for _, opt := range opts {
		opt(id)
	}
	return identity.WithIdentity(ctx, id)
}

// AsRequest attaches a synthetic identity to req.
func AsRequest(req *http.Request, subject string, opts ...IdentityOption) *http.Request {
	return req.WithContext(As(req.Context(), subject, opts...))
}

// WithClient attaches client metadata the way the metadata middleware does.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return requestcontext.WithClientMetadata(ctx, ip, userAgent)
}
