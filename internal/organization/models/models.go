package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusSuspended
}

// CanTransitionTo allows active <-> suspended only.
func (s Status) CanTransitionTo(next Status) bool {
	return s.IsValid() && next.IsValid() && s != next
}

func (s Status) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid organization status %q", string(s))
	}
	return string(s), nil
}

// Organization is a customer tenant synced from the identity provider.
//
// Invariants:
//   - ExternalID is the provider's org id and is unique
//   - Status is active or suspended; only admins change it
//   - A suspended organization keeps its members and history
type Organization struct {
	ID          domain.OrganizationID `json:"id"`
	ExternalID  string                `json:"external_id"`
	Name        string                `json:"name"`
	Slug        string                `json:"slug"`
	Status      Status                `json:"status"`
	MemberCount int                   `json:"member_count"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func (o *Organization) IsActive() bool { return o.Status == StatusActive }

// CanSuspend reports an invariant violation when o is already suspended.
func (o *Organization) CanSuspend() error {
	if !o.Status.CanTransitionTo(StatusSuspended) {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already suspended")
	}
	return nil
}

func (o *Organization) Suspend(now time.Time) error {
	if err := o.CanSuspend(); err != nil {
		return err
	}
	o.Status = StatusSuspended
	o.UpdatedAt = now
	return nil
}

func (o *Organization) CanActivate() error {
	if !o.Status.CanTransitionTo(StatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization is already active")
	}
	return nil
}

func (o *Organization) Activate(now time.Time) error {
	if err := o.CanActivate(); err != nil {
		return err
	}
	o.Status = StatusActive
	o.UpdatedAt = now
	return nil
}

// ProviderOrganization is the organization payload of an identity-provider
// sync event.
type ProviderOrganization struct {
	ExternalID  string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	MemberCount int    `json:"members_count"`
}

func (p *ProviderOrganization) Normalize() {
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
}

func (p *ProviderOrganization) Validate() error {
	if p.ExternalID == "" {
		return dErrors.New(dErrors.CodeValidation, "organization id is required")
	}
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "organization name is required")
	}
	if len(p.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "organization name must be 128 characters or less")
	}
	if p.MemberCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "members_count cannot be negative")
	}
	return nil
}

// SuspendRequest is the body of the suspend endpoint. Reason is optional.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

func (r *SuspendRequest) Normalize() { r.Reason = strings.TrimSpace(r.Reason) }

func (r *SuspendRequest) Validate() error {
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "reason must be 500 characters or less")
	}
	return nil
}
