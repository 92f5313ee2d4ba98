package models

import (
	"strings"
	"time"

	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
)

const unknownUserName = "Unknown User"

// User is the persisted account behind an identity subject.
//
// Invariants:
//   - ExternalID equals the identity subject and is unique
//   - Role is checked for every privileged operation; token role claims are not
//   - OrgID follows the provider's membership events and may be empty
type User struct {
	ID                 domain.UserID `json:"id"`
	ExternalID         string        `json:"external_id"`
	Email              string        `json:"email"`
	Name               string        `json:"name"`
	Role               domain.Role   `json:"role"`
	OrgID              string        `json:"org_id,omitempty"`
	SubscriptionTier   string        `json:"subscription_tier,omitempty"`
	SubscriptionStatus string        `json:"subscription_status,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (u *User) InOrganization() bool { return u.OrgID != "" }

// DisplayName picks the first non-empty of name and email.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if e := strings.TrimSpace(email); e != "" {
		return e
	}
	return unknownUserName
}

// MembershipRole maps a provider membership role onto a platform role.
// Provider admins become admins and everyone else a member. An empty
// provider role keeps current, and a platform superadmin is never demoted.
func MembershipRole(providerRole string, current domain.Role) domain.Role {
	if current == domain.RolePlatformSuperadmin {
		return current
	}
	switch strings.ToLower(strings.TrimSpace(providerRole)) {
	case "":
		if current.IsValid() {
			return current
		}
		return domain.RoleMember
	case "org:admin", "admin":
		return domain.RoleAdmin
	default:
		return domain.RoleMember
	}
}

// CurrentUser is the caller's record plus the organization claim of the
// request. User is nil until the first sync has created it.
type CurrentUser struct {
	User  *User  `json:"user"`
	OrgID string `json:"org_id,omitempty"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ProviderUser is the user payload of an identity-provider sync event.
type ProviderUser struct {
	ExternalID            string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
}

func (p *ProviderUser) Normalize() {
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	for i := range p.EmailAddresses {
		p.EmailAddresses[i].EmailAddress = strings.ToLower(strings.TrimSpace(p.EmailAddresses[i].EmailAddress))
	}
}

func (p *ProviderUser) Validate() error {
	if p.ExternalID == "" {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	return nil
}

// PrimaryEmail returns the address marked primary, else the first one.
func (p *ProviderUser) PrimaryEmail() string {
	for _, e := range p.EmailAddresses {
		if e.ID != "" && e.ID == p.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(p.EmailAddresses) > 0 {
		return p.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (p *ProviderUser) DisplayName() string {
	return DisplayName(strings.TrimSpace(p.FirstName+" "+p.LastName), p.PrimaryEmail())
}

// ProviderMembership is the payload of an organization membership event.
type ProviderMembership struct {
	Role         string `json:"role"`
	Organization struct {
		ID string `json:"id"`
	} `json:"organization"`
	PublicUserData struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
}

func (m *ProviderMembership) UserID() string { return strings.TrimSpace(m.PublicUserData.UserID) }
func (m *ProviderMembership) OrgID() string  { return strings.TrimSpace(m.Organization.ID) }

// SetRoleRequest is the body of the role change endpoint.
type SetRoleRequest struct {
	Role string `json:"role"`
}

func (r *SetRoleRequest) Normalize() { r.Role = strings.ToLower(strings.TrimSpace(r.Role)) }

func (r *SetRoleRequest) Validate() error {
	if r.Role == "" {
		return dErrors.New(dErrors.CodeValidation, "role is required")
	}
	if _, err := domain.ParseRole(r.Role); err != nil {
		return dErrors.New(dErrors.CodeValidation, "role must be member, admin or platform:superadmin")
	}
	return nil
}

// Parsed returns the requested role. Call after Validate.
func (r *SetRoleRequest) Parsed() domain.Role {
	role, _ := domain.ParseRole(r.Role)
	return role
}
