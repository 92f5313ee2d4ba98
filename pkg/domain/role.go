package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is a platform role. Roles are ordered: every capability granted to a
// lower role is also granted to the roles above it.
type Role int

const (
	RoleUnknown Role = iota
	RoleMember
	RoleAdmin
	RolePlatformSuperadmin
)

var roleNames = map[Role]string{
	RoleMember:             "member",
	RoleAdmin:              "admin",
	RolePlatformSuperadmin: "platform:superadmin",
}

// legacyRoleNames are accepted on read and never written.
var legacyRoleNames = map[string]Role{
	"client": RoleMember,
}

// ParseRole returns the role named s. Unknown names are an error.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	if r, ok := legacyRoleNames[name]; ok {
		return r, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role: %q", s)
}

// RoleOrMember parses s and falls back to RoleMember for empty or unknown
// values, so a malformed claim never grants more than the lowest role.
func RoleOrMember(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		return RoleMember
	}
	return r
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r ranks at or above other. Unknown roles rank below everything.
func (r Role) AtLeast(other Role) bool {
	if !r.IsValid() {
		return false
	}
	return r >= other
}

// Can reports whether r holds capability c.
func (r Role) Can(c Capability) bool {
	min, ok := capabilityFloor[c]
	if !ok {
		return false
	}
	return r.AtLeast(min)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("cannot marshal role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role by name.
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("cannot store role %d", int(r))
	}
	return r.String(), nil
}

// Scan reads a stored role name. NULL and empty values read as member.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = RoleMember
		return nil
	case string:
		*r = RoleOrMember(v)
		return nil
	case []byte:
		*r = RoleOrMember(string(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}

// Capability names a privileged operation.
type Capability string

const (
	CapViewAuditLog        Capability = "view_audit_log"
	CapManageOrganizations Capability = "manage_organizations"
	CapDeleteUsers         Capability = "delete_users"
	CapManageRoles         Capability = "manage_roles"
	CapViewAllUsers        Capability = "view_all_users"
	CapPurgeTestData       Capability = "purge_test_data"
)

// capabilityFloor is the lowest role holding each capability. A capability
// missing from this table is held by nobody.
var capabilityFloor = map[Capability]Role{
	CapViewAuditLog:        RoleAdmin,
	CapManageOrganizations: RoleAdmin,
	CapDeleteUsers:         RoleAdmin,
	CapManageRoles:         RolePlatformSuperadmin,
	CapViewAllUsers:        RolePlatformSuperadmin,
	CapPurgeTestData:       RolePlatformSuperadmin,
}

// Capabilities lists what r may do.
func (r Role) Capabilities() []Capability {
	var caps []Capability
	for c := range capabilityFloor {
		if r.Can(c) {
			caps = append(caps, c)
		}
	}
	return caps
}
