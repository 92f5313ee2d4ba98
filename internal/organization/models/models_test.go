package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "freightdesk/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	now := time.Now()
	org := &Organization{Status: StatusActive}

	require.NoError(t, org.Suspend(now))
	assert.Equal(t, StatusSuspended, org.Status)
	assert.Equal(t, now, org.UpdatedAt)

	err := org.Suspend(now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	require.NoError(t, org.Activate(now))
	assert.True(t, org.IsActive())
	assert.True(t, dErrors.HasCode(org.Activate(now), dErrors.CodeInvariantViolation))

	assert.False(t, Status("archived").CanTransitionTo(StatusActive))
}

func TestProviderOrganizationValidate(t *testing.T) {
	p := &ProviderOrganization{ExternalID: " org_1 ", Name: " Acme ", Slug: " ACME "}
	p.Normalize()
	require.NoError(t, p.Validate())
	assert.Equal(t, "org_1", p.ExternalID)
	assert.Equal(t, "acme", p.Slug)

	assert.Error(t, (&ProviderOrganization{Name: "x"}).Validate())
	assert.Error(t, (&ProviderOrganization{ExternalID: "org_1"}).Validate())
	assert.Error(t, (&ProviderOrganization{ExternalID: "org_1", Name: "x", MemberCount: -1}).Validate())
}
