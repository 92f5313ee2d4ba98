// Package access enforces who may act, in which organization, with which
// capability. Every check runs before a transaction is opened, so a failed
// check never leaves a partial write behind.
package access

import (
	"context"

	"freightdesk/internal/identity"
	dErrors "freightdesk/pkg/domain-errors"
)

// CurrentOrgID projects the organization claim. false means personal scope.
func CurrentOrgID(id *identity.Identity) (string, bool) {
	if !id.HasOrganization() {
		return "", false
	}
	return id.OrgID, true
}

// RequireAuth returns the caller's identity or an unauthorized error.
func RequireAuth(ctx context.Context) (*identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	return id, nil
}

// RequireOrgMembership returns the caller and their active organization.
// Callers in personal scope get no_active_organization.
func RequireOrgMembership(ctx context.Context) (*identity.Identity, string, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		return nil, "", err
	}
	orgID, ok := CurrentOrgID(id)
	if !ok {
		return nil, "", dErrors.New(dErrors.CodeNoActiveOrganization, "no active organization")
	}
	return id, orgID, nil
}
