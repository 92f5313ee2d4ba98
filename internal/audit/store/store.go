// Package store persists audit entries and their outbox rows with sqlx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"freightdesk/internal/audit/models"
	"freightdesk/internal/platform/database"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/platform/tx"
)

// Store is the SQL audit log. Reads order by seq, the store-assigned
// insertion sequence, so entries stamped in the same millisecond keep the
// order they were written in.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type entryRow struct {
	Seq        int64          `db:"seq"`
	ID         string         `db:"id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   sql.NullString `db:"entity_id"`
	UserID     sql.NullString `db:"user_id"`
	UserEmail  sql.NullString `db:"user_email"`
	OrgID      sql.NullString `db:"org_id"`
	Details    models.Details `db:"details"`
	IPAddress  sql.NullString `db:"ip_address"`
	UserAgent  sql.NullString `db:"user_agent"`
	OccurredAt int64          `db:"occurred_at"`
}

func (r entryRow) toModel() *models.Entry {
	return &models.Entry{
		Seq:        r.Seq,
		ID:         domain.EntryID(r.ID),
		Action:     models.Action(r.Action),
		EntityType: r.EntityType,
		EntityID:   r.EntityID.String,
		UserID:     r.UserID.String,
		UserEmail:  r.UserEmail.String,
		OrgID:      r.OrgID.String,
		Details:    r.Details,
		IPAddress:  r.IPAddress.String,
		UserAgent:  r.UserAgent.String,
		Timestamp:  r.OccurredAt,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const selectColumns = `seq, id, action, entity_type, entity_id, user_id, user_email, org_id,
	details, ip_address, user_agent, occurred_at`

// Append inserts e and sets e.Seq. It joins the transaction in ctx if any.
func (s *Store) Append(ctx context.Context, e *models.Entry) error {
	ex := tx.Executor(ctx, s.db)
	query := ex.Rebind(`
		INSERT INTO audit_logs (id, action, entity_type, entity_id, user_id, user_email, org_id,
			details, ip_address, user_agent, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`)

	var seq int64
	err := sqlx.GetContext(ctx, ex, &seq, query,
		e.ID.String(),
		string(e.Action),
		e.EntityType,
		nullable(e.EntityID),
		nullable(e.UserID),
		nullable(e.UserEmail),
		nullable(e.OrgID),
		e.Details,
		nullable(e.IPAddress),
		nullable(e.UserAgent),
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	e.Seq = seq
	return nil
}

func (s *Store) list(ctx context.Context, where string, limit int, args ...any) ([]*models.Entry, error) {
	ex := tx.Executor(ctx, s.db)
	query := `SELECT ` + selectColumns + ` FROM audit_logs`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	out := make([]*models.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ListRecent returns the newest entries across all partitions.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*models.Entry, error) {
	return s.list(ctx, "", limit)
}

// ListByEntityType scans the entity_type index newest first. limit <= 0
// returns the whole partition.
func (s *Store) ListByEntityType(ctx context.Context, entityType string, limit int) ([]*models.Entry, error) {
	return s.list(ctx, "entity_type = ?", limit, entityType)
}

// ListByAction scans the action index newest first.
func (s *Store) ListByAction(ctx context.Context, action models.Action, limit int) ([]*models.Entry, error) {
	return s.list(ctx, "action = ?", limit, string(action))
}

// DeleteByEntityIDPrefixes removes entries whose entity id starts with any of
// prefixes. It is the only delete path for audit entries and serves test
// data resets.
func (s *Store) DeleteByEntityIDPrefixes(ctx context.Context, prefixes []string) (int64, error) {
	if len(prefixes) == 0 {
		return 0, nil
	}
	patterns := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		patterns = append(patterns, escapeLike(p)+"%")
	}

	ex := tx.Executor(ctx, s.db)
	var (
		res sql.Result
		err error
	)
	if database.IsPostgres(s.db.DriverName()) {
		// Backslash is already the default LIKE escape in Postgres.
		var arg any = pq.Array(patterns)
		if s.db.DriverName() == "pgx" {
			arg = patterns
		}
		res, err = ex.ExecContext(ctx, `DELETE FROM audit_logs WHERE entity_id LIKE ANY($1)`, arg)
	} else {
		clauses := make([]string, len(patterns))
		args := make([]any, len(patterns))
		for i, p := range patterns {
			clauses[i] = `entity_id LIKE ? ESCAPE '\'`
			args[i] = p
		}
		res, err = ex.ExecContext(ctx,
			ex.Rebind(`DELETE FROM audit_logs WHERE `+strings.Join(clauses, " OR ")), args...)
	}
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return res.RowsAffected()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
