// Package store persists users with sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"freightdesk/internal/access"
	"freightdesk/internal/user/models"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/platform/tx"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type userRow struct {
	ID                 string         `db:"id"`
	ExternalID         string         `db:"external_id"`
	Email              string         `db:"email"`
	Name               string         `db:"name"`
	Role               domain.Role    `db:"role"`
	OrgID              sql.NullString `db:"org_id"`
	SubscriptionTier   sql.NullString `db:"subscription_tier"`
	SubscriptionStatus sql.NullString `db:"subscription_status"`
	CreatedAt          int64          `db:"created_at"`
	UpdatedAt          int64          `db:"updated_at"`
}

func (r userRow) toModel() (*models.User, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("user %s: bad id: %w", r.ExternalID, err)
	}
	return &models.User{
		ID:                 domain.UserID(id),
		ExternalID:         r.ExternalID,
		Email:              r.Email,
		Name:               r.Name,
		Role:               r.Role,
		OrgID:              r.OrgID.String,
		SubscriptionTier:   r.SubscriptionTier.String,
		SubscriptionStatus: r.SubscriptionStatus.String,
		CreatedAt:          time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:          time.UnixMilli(r.UpdatedAt).UTC(),
	}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const selectColumns = `SELECT id, external_id, email, name, role, org_id, subscription_tier, subscription_status, created_at, updated_at FROM users`

func (s *Store) get(ctx context.Context, where string, arg any) (*models.User, error) {
	ex := tx.Executor(ctx, s.db)
	var row userRow
	err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(selectColumns+` WHERE `+where), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toModel()
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	ex := tx.Executor(ctx, s.db)
	var rows []userRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		u, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	return s.get(ctx, `id = ?`, id.String())
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.get(ctx, `external_id = ?`, externalID)
}

// FindMemberByExternalID is the lookup the access gate authorizes against.
func (s *Store) FindMemberByExternalID(ctx context.Context, externalID string) (*access.Member, error) {
	u, err := s.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &access.Member{UserID: u.ID, Email: u.Email, Role: u.Role, OrgID: u.OrgID}, nil
}

func (s *Store) ListByOrg(ctx context.Context, orgID string) ([]*models.User, error) {
	return s.list(ctx, selectColumns+` WHERE org_id = ? ORDER BY name, external_id`, orgID)
}

func (s *Store) ListAll(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, selectColumns+` ORDER BY name, external_id`)
}

// Upsert inserts u or refreshes the profile fields of the existing row with
// the same external id. Role and organization are left as stored; u is
// refreshed from the row.
func (s *Store) Upsert(ctx context.Context, u *models.User) error {
	ex := tx.Executor(ctx, s.db)
	_, err := ex.ExecContext(ctx, ex.Rebind(`
		INSERT INTO users (id, external_id, email, name, role, org_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			updated_at = excluded.updated_at`),
		u.ID.String(), u.ExternalID, u.Email, u.Name, u.Role, nullable(u.OrgID),
		u.CreatedAt.UnixMilli(), u.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	stored, err := s.FindByExternalID(ctx, u.ExternalID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

// UpdateOrgMembership writes u's organization and role.
func (s *Store) UpdateOrgMembership(ctx context.Context, u *models.User) error {
	return s.exec(ctx, "update user membership",
		`UPDATE users SET org_id = ?, role = ?, updated_at = ? WHERE id = ?`,
		nullable(u.OrgID), u.Role, u.UpdatedAt.UnixMilli(), u.ID.String())
}

func (s *Store) UpdateRole(ctx context.Context, u *models.User) error {
	return s.exec(ctx, "update user role",
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		u.Role, u.UpdatedAt.UnixMilli(), u.ID.String())
}

func (s *Store) Delete(ctx context.Context, id domain.UserID) error {
	return s.exec(ctx, "delete user", `DELETE FROM users WHERE id = ?`, id.String())
}

func (s *Store) DeleteByExternalID(ctx context.Context, externalID string) error {
	return s.exec(ctx, "delete user", `DELETE FROM users WHERE external_id = ?`, externalID)
}

// exec runs a single-row write. No affected row is ErrNotFound.
func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	ex := tx.Executor(ctx, s.db)
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
