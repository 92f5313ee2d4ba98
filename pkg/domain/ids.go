package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	dErrors "freightdesk/pkg/domain-errors"
)

// UserID identifies a persisted user record. The identity provider's subject is
// stored separately as the user's external id.
type UserID uuid.UUID

// OrganizationID identifies a persisted organization record.
type OrganizationID uuid.UUID

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id OrganizationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }

// ParseUserID parses a user id at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

// ParseOrganizationID parses an organization id at a trust boundary.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization")
	return OrganizationID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

// EntryID identifies an audit log entry. ULIDs sort by creation time, and the
// monotonic source keeps ids minted within the same millisecond ordered.
type EntryID string

func (id EntryID) String() string { return string(id) }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEntryID mints a ULID for an entry stamped at t.
func NewEntryID(t time.Time) EntryID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return EntryID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// ParseEntryID validates a ULID string.
func ParseEntryID(s string) (EntryID, error) {
	parsed, err := ulid.ParseStrict(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid entry id")
	}
	return EntryID(parsed.String()), nil
}
