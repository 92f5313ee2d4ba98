// Package store persists organizations with sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"freightdesk/internal/organization/models"
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

type orgRow struct {
	ID          string `db:"id"`
	ExternalID  string `db:"external_id"`
	Name        string `db:"name"`
	Slug        string `db:"slug"`
	Status      string `db:"status"`
	MemberCount int    `db:"member_count"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r orgRow) toModel() (*models.Organization, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("organization %s: bad id: %w", r.ExternalID, err)
	}
	return &models.Organization{
		ID:          domain.OrganizationID(id),
		ExternalID:  r.ExternalID,
		Name:        r.Name,
		Slug:        r.Slug,
		Status:      models.Status(r.Status),
		MemberCount: r.MemberCount,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt).UTC(),
	}, nil
}

const selectColumns = `SELECT id, external_id, name, slug, status, member_count, created_at, updated_at FROM organizations`

func (s *Store) get(ctx context.Context, where string, arg any) (*models.Organization, error) {
	ex := tx.Executor(ctx, s.db)
	var row orgRow
	err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(selectColumns+` WHERE `+where), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return row.toModel()
}

func (s *Store) FindByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	return s.get(ctx, `id = ?`, id.String())
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*models.Organization, error) {
	return s.get(ctx, `external_id = ?`, externalID)
}

// List returns every organization by name.
func (s *Store) List(ctx context.Context) ([]*models.Organization, error) {
	ex := tx.Executor(ctx, s.db)
	var rows []orgRow
	if err := sqlx.SelectContext(ctx, ex, &rows, selectColumns+` ORDER BY name, external_id`); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	out := make([]*models.Organization, 0, len(rows))
	for _, r := range rows {
		org, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, nil
}

// Upsert inserts org or, when its external id exists, updates the provider
// owned fields. Status is never touched by an upsert. org is refreshed from
// the stored row.
func (s *Store) Upsert(ctx context.Context, org *models.Organization) error {
	ex := tx.Executor(ctx, s.db)
	_, err := ex.ExecContext(ctx, ex.Rebind(`
		INSERT INTO organizations (id, external_id, name, slug, status, member_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			member_count = excluded.member_count,
			updated_at = excluded.updated_at`),
		org.ID.String(), org.ExternalID, org.Name, org.Slug, org.Status, org.MemberCount,
		org.CreatedAt.UnixMilli(), org.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	stored, err := s.FindByExternalID(ctx, org.ExternalID)
	if err != nil {
		return err
	}
	*org = *stored
	return nil
}

// UpdateStatus writes org's status and updated time.
func (s *Store) UpdateStatus(ctx context.Context, org *models.Organization) error {
	ex := tx.Executor(ctx, s.db)
	res, err := ex.ExecContext(ctx, ex.Rebind(`UPDATE organizations SET status = ?, updated_at = ? WHERE id = ?`),
		org.Status, org.UpdatedAt.UnixMilli(), org.ID.String())
	if err != nil {
		return fmt.Errorf("update organization status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization status: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteByExternalID removes the organization. Missing rows are ErrNotFound.
func (s *Store) DeleteByExternalID(ctx context.Context, externalID string) error {
	ex := tx.Executor(ctx, s.db)
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM organizations WHERE external_id = ?`), externalID)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
