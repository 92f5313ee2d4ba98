// Package models holds the audit trail types.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Details is a schema-less payload attached to an entry. The recorder stores
// whatever callers put here without validating its shape.
type Details map[string]any

// Value stores details as JSON text. Empty details are stored as NULL.
func (d Details) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return string(b), nil
}

func (d *Details) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Details", src)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Entry is one persisted audit record. It is never updated once written.
// Empty strings stand for absent optional fields.
type Entry struct {
	Seq        int64          `json:"-"`
	ID         domain.EntryID `json:"id"`
	Action     Action         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	UserEmail  string         `json:"user_email,omitempty"`
	OrgID      string         `json:"org_id,omitempty"`
	Details    Details        `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Timestamp  int64          `json:"timestamp"` // unix milliseconds
}

func (e *Entry) OccurredAt() time.Time { return time.UnixMilli(e.Timestamp).UTC() }

// Event is the input to the system-callable logEvent path. Every field is
// taken as given, including the actor.
type Event struct {
	Action     Action  `json:"action"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id,omitempty"`
	UserID     string  `json:"user_id,omitempty"`
	UserEmail  string  `json:"user_email,omitempty"`
	OrgID      string  `json:"org_id,omitempty"`
	Details    Details `json:"details,omitempty"`
	IPAddress  string  `json:"ip_address,omitempty"`
	UserAgent  string  `json:"user_agent,omitempty"`
}

func (e *Event) Normalize() {
	e.Action = Action(strings.TrimSpace(string(e.Action)))
	e.EntityType = strings.TrimSpace(e.EntityType)
	e.EntityID = strings.TrimSpace(e.EntityID)
	e.UserID = strings.TrimSpace(e.UserID)
	e.UserEmail = strings.TrimSpace(e.UserEmail)
	e.OrgID = strings.TrimSpace(e.OrgID)
}

func (e *Event) Validate() error {
	return validateTarget(e.Action, e.EntityType, e.EntityID)
}

// LogRequest is the input to the identity-derived log path. The actor comes
// from the caller's identity, never from the request body.
type LogRequest struct {
	Action     Action  `json:"action"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id,omitempty"`
	Details    Details `json:"details,omitempty"`
}

func (r *LogRequest) Normalize() {
	r.Action = Action(strings.TrimSpace(string(r.Action)))
	r.EntityType = strings.TrimSpace(r.EntityType)
	r.EntityID = strings.TrimSpace(r.EntityID)
}

func (r *LogRequest) Validate() error {
	return validateTarget(r.Action, r.EntityType, r.EntityID)
}

func validateTarget(action Action, entityType, entityID string) error {
	if action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if !action.IsWellFormed() {
		return dErrors.New(dErrors.CodeValidation, "action must have the form <entity>.<verb>")
	}
	if entityType == "" {
		return dErrors.New(dErrors.CodeValidation, "entity_type is required")
	}
	if len(entityType) > 64 {
		return dErrors.New(dErrors.CodeValidation, "entity_type is too long")
	}
	if len(entityID) > 256 {
		return dErrors.New(dErrors.CodeValidation, "entity_id is too long")
	}
	return nil
}

// Filter selects entries for listLogs. When both are set EntityType wins;
// only one index is used per query.
type Filter struct {
	EntityType string
	Action     Action
	Limit      int
}

// EffectiveLimit applies the default and the cap.
func (f Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// TestEntityPrefixes mark entity ids produced by sample-data generators.
var TestEntityPrefixes = []string{"BK-TEST-", "QT-TEST-", "PAY-TEST-", "TEST-"}

// OutboxMessage is an entry queued for publication to Kafka.
type OutboxMessage struct {
	Seq       int64
	EntryID   domain.EntryID
	Key       string
	Payload   []byte
	CreatedAt int64
}
