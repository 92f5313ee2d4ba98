package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freightdesk/internal/access"
	auditmodels "freightdesk/internal/audit/models"
	"freightdesk/internal/organization/metrics"
	"freightdesk/internal/organization/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/requestcontext"
)

type Store interface {
	FindByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Upsert(ctx context.Context, org *models.Organization) error
	UpdateStatus(ctx context.Context, org *models.Organization) error
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// AuditRecorder appends audit entries inside the caller's transaction.
type AuditRecorder interface {
	LogEvent(ctx context.Context, ev auditmodels.Event) (domain.EntryID, error)
}

// Service manages organizations. Status changes are privileged and audited in
// the same transaction as the write.
type Service struct {
	orgs    Store
	exec    *access.Executor
	audit   AuditRecorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(orgs Store, exec *access.Executor, audit AuditRecorder, opts ...Option) *Service {
	s := &Service{orgs: orgs, exec: exec, audit: audit, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertFromProvider applies an organization created or updated event from
// the identity provider. Status is left as stored.
func (s *Service) UpsertFromProvider(ctx context.Context, p models.ProviderOrganization) (*models.Organization, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	org := &models.Organization{
		ID:          domain.NewOrganizationID(),
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Slug:        p.Slug,
		Status:      models.StatusActive,
		MemberCount: p.MemberCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.exec.Atomic(ctx, func(ctx context.Context) error {
		return s.orgs.Upsert(ctx, org)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sync organization")
	}
	s.incSync("upsert")
	return org, nil
}

// DeleteFromProvider removes an organization deleted at the provider. An
// unknown id is logged and ignored so webhook redelivery stays harmless.
func (s *Service) DeleteFromProvider(ctx context.Context, externalID string) error {
	err := s.orgs.DeleteByExternalID(ctx, externalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "organization delete for unknown provider id",
			"external_id", externalID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete organization")
	}
	s.incSync("delete")
	return nil
}

// List returns all organizations to callers that manage them and nothing to
// anyone else.
func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	return access.Query(ctx, s.exec.Gate(), domain.CapManageOrganizations,
		func(ctx context.Context, _ *access.Actor) ([]*models.Organization, error) {
			orgs, err := s.orgs.List(ctx)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
			}
			return orgs, nil
		})
}

// Get returns an organization to its own members and to organization
// managers. Anyone else gets not_found.
func (s *Service) Get(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	caller, err := access.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	org, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if orgID, ok := access.CurrentOrgID(caller); ok && orgID == org.ExternalID {
		return org, nil
	}
	_, ok, err := s.exec.Gate().Permits(ctx, domain.CapManageOrganizations)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
	}
	return org, nil
}

// Suspend marks the organization suspended and records
// organization.suspended with the optional reason.
func (s *Service) Suspend(ctx context.Context, id domain.OrganizationID, reason string) (*models.Organization, error) {
	var details auditmodels.Details
	if reason != "" {
		details = auditmodels.Details{"reason": reason}
	}
	return s.changeStatus(ctx, id, auditmodels.ActionOrganizationSuspended, details, (*models.Organization).Suspend)
}

// Activate lifts a suspension and records organization.activated.
func (s *Service) Activate(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	return s.changeStatus(ctx, id, auditmodels.ActionOrganizationActivated, nil, (*models.Organization).Activate)
}

func (s *Service) changeStatus(
	ctx context.Context,
	id domain.OrganizationID,
	action auditmodels.Action,
	details auditmodels.Details,
	transition func(*models.Organization, time.Time) error,
) (*models.Organization, error) {
	var out *models.Organization
	err := s.exec.Mutate(ctx, domain.CapManageOrganizations, func(ctx context.Context, actor *access.Actor) error {
		org, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if err := transition(org, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeConflict, dErrors.MessageOf(err))
		}
		if err := s.orgs.UpdateStatus(ctx, org); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update organization")
		}
		if _, err := s.audit.LogEvent(ctx, actorEvent(ctx, actor, action, org, details)); err != nil {
			return err
		}
		out = org
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncStatusChange(string(out.Status))
	}
	s.logger.InfoContext(ctx, "organization status changed",
		"organization_id", out.ID.String(),
		"status", string(out.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	return out, nil
}

func (s *Service) find(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

func (s *Service) incSync(op string) {
	if s.metrics != nil {
		s.metrics.IncProviderSync(op)
	}
}

func actorEvent(ctx context.Context, actor *access.Actor, action auditmodels.Action, org *models.Organization, details auditmodels.Details) auditmodels.Event {
	return auditmodels.Event{
		Action:     action,
		EntityType: auditmodels.EntityOrganization,
		EntityID:   org.ID.String(),
		UserID:     actor.Subject(),
		UserEmail:  actor.Email(),
		OrgID:      actor.OrgID(),
		Details:    details,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
}
