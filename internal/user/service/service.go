// Package service manages user records: sign-in sync, identity-provider
// events, organization membership and privileged role changes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"freightdesk/internal/access"
	auditmodels "freightdesk/internal/audit/models"
	"freightdesk/internal/identity"
	"freightdesk/internal/user/metrics"
	"freightdesk/internal/user/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/requestcontext"
)

// actionUserDeleted is outside the fixed taxonomy.
const actionUserDeleted auditmodels.Action = "user.deleted"

type Store interface {
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
	Upsert(ctx context.Context, u *models.User) error
	UpdateOrgMembership(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id domain.UserID) error
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// AuditRecorder appends audit entries inside the caller's transaction.
type AuditRecorder interface {
	LogEvent(ctx context.Context, ev auditmodels.Event) (domain.EntryID, error)
}

type Service struct {
	users   Store
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

func New(users Store, exec *access.Executor, audit AuditRecorder, opts ...Option) *Service {
	s := &Service{users: users, exec: exec, audit: audit, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureUserExists creates or refreshes the caller's record from the
// identity and records user.login. New users start as members whatever the
// token claims.
func (s *Service) EnsureUserExists(ctx context.Context) (*models.User, error) {
	id, err := access.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	u := &models.User{
		ID:         domain.NewUserID(),
		ExternalID: id.Subject,
		Email:      id.Email,
		Name:       models.DisplayName(id.Name, id.Email),
		Role:       domain.RoleMember,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.exec.Atomic(ctx, func(ctx context.Context) error {
		if err := s.users.Upsert(ctx, u); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sync user")
		}
		_, err := s.audit.LogEvent(ctx, identityEvent(ctx, id, auditmodels.ActionUserLogin, id.Subject, nil))
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncLogin()
	}
	return u, nil
}

// Current returns the caller's record, or nil when the caller is anonymous or
// not yet synced.
func (s *Service) Current(ctx context.Context) (*models.User, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return nil, nil
	}
	return s.findOptional(ctx, id.Subject)
}

// CurrentWithOrg returns the caller's record with the organization claim of
// the request. It is nil for anonymous callers.
func (s *Service) CurrentWithOrg(ctx context.Context) (*models.CurrentUser, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return nil, nil
	}
	u, err := s.findOptional(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	orgID, _ := access.CurrentOrgID(id)
	return &models.CurrentUser{User: u, OrgID: orgID}, nil
}

func (s *Service) findOptional(ctx context.Context, externalID string) (*models.User, error) {
	u, err := s.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// UpsertFromProvider applies a user created or updated event.
func (s *Service) UpsertFromProvider(ctx context.Context, p models.ProviderUser) (*models.User, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	u := &models.User{
		ID:         domain.NewUserID(),
		ExternalID: p.ExternalID,
		Email:      p.PrimaryEmail(),
		Name:       p.DisplayName(),
		Role:       domain.RoleMember,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.exec.Atomic(ctx, func(ctx context.Context) error {
		return s.users.Upsert(ctx, u)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sync user")
	}
	s.incSync("upsert")
	return u, nil
}

// DeleteFromProvider removes a user deleted at the provider. Unknown ids are
// logged and ignored.
func (s *Service) DeleteFromProvider(ctx context.Context, externalID string) error {
	err := s.users.DeleteByExternalID(ctx, externalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "user delete for unknown provider id",
			"external_id", externalID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	s.incSync("delete")
	return nil
}

// UpdateOrgMembership moves a user into orgID, or out of any organization
// when orgID is empty. providerRole maps through models.MembershipRole, so an
// empty role keeps the stored one. Joins, leaves and side-effect role changes
// are audited in the same transaction.
func (s *Service) UpdateOrgMembership(ctx context.Context, externalUserID, orgID, providerRole string) error {
	return s.exec.Atomic(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByExternalID(ctx, externalUserID)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "membership change for unknown user",
				"external_id", externalUserID,
				"org_id", orgID,
			)
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}

		prevOrg, prevRole := u.OrgID, u.Role
		u.OrgID = orgID
		u.Role = models.MembershipRole(providerRole, prevRole)
		u.UpdatedAt = requestcontext.Now(ctx)
		if err := s.users.UpdateOrgMembership(ctx, u); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update membership")
		}

		var events []auditmodels.Event
		if prevOrg != "" && prevOrg != orgID {
			events = append(events, membershipEvent(ctx, u, auditmodels.ActionUserOrgLeft, prevOrg, nil))
		}
		if orgID != "" && orgID != prevOrg {
			events = append(events, membershipEvent(ctx, u, auditmodels.ActionUserOrgJoined, orgID,
				auditmodels.Details{"role": u.Role.String()}))
		}
		if u.Role != prevRole {
			events = append(events, membershipEvent(ctx, u, auditmodels.ActionUserRoleChanged, orgID,
				auditmodels.Details{"from": prevRole.String(), "to": u.Role.String(), "source": "membership"}))
		}
		for _, ev := range events {
			if _, err := s.audit.LogEvent(ctx, ev); err != nil {
				return err
			}
			if s.metrics != nil && ev.Action != auditmodels.ActionUserRoleChanged {
				s.metrics.IncMembershipChange(ev.Action.String())
			}
		}
		return nil
	})
}

// SetRole changes a user's platform role. Only platform superadmins may do
// this. Setting the current role is a no-op and is not audited.
func (s *Service) SetRole(ctx context.Context, id domain.UserID, role domain.Role) (*models.User, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	var out *models.User
	err := s.exec.Mutate(ctx, domain.CapManageRoles, func(ctx context.Context, actor *access.Actor) error {
		u, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		out = u
		if u.Role == role {
			return nil
		}
		from := u.Role
		u.Role = role
		u.UpdatedAt = requestcontext.Now(ctx)
		if err := s.users.UpdateRole(ctx, u); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
		}
		_, err = s.audit.LogEvent(ctx, actorEvent(ctx, actor, auditmodels.ActionUserRoleChanged, u.ExternalID,
			auditmodels.Details{"from": from.String(), "to": role.String()}))
		if err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.IncRoleChange(role.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user. Admins may not delete users ranked above them.
func (s *Service) Delete(ctx context.Context, id domain.UserID) error {
	return s.exec.Mutate(ctx, domain.CapDeleteUsers, func(ctx context.Context, actor *access.Actor) error {
		u, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Member.Role.AtLeast(u.Role) {
			return dErrors.New(dErrors.CodeForbidden, "cannot delete a user with a higher role")
		}
		if err := s.users.Delete(ctx, u.ID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
		}
		_, err = s.audit.LogEvent(ctx, actorEvent(ctx, actor, actionUserDeleted, u.ExternalID,
			auditmodels.Details{"email": u.Email, "role": u.Role.String()}))
		return err
	})
}

// ListForOrg returns the members of the caller's organization. Callers in
// personal scope see every user when they may view all users and nothing
// otherwise, as do anonymous callers.
func (s *Service) ListForOrg(ctx context.Context) ([]*models.User, error) {
	id, err := access.RequireAuth(ctx)
	if err != nil {
		return []*models.User{}, nil
	}
	if orgID, ok := access.CurrentOrgID(id); ok {
		users, err := s.users.ListByOrg(ctx, orgID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
		}
		return users, nil
	}
	return access.Query(ctx, s.exec.Gate(), domain.CapViewAllUsers,
		func(ctx context.Context, _ *access.Actor) ([]*models.User, error) {
			users, err := s.users.ListAll(ctx)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
			}
			return users, nil
		})
}

func (s *Service) find(ctx context.Context, id domain.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

func (s *Service) incSync(op string) {
	if s.metrics != nil {
		s.metrics.IncProviderSync(op)
	}
}

func identityEvent(ctx context.Context, id *identity.Identity, action auditmodels.Action, entityID string, details auditmodels.Details) auditmodels.Event {
	return auditmodels.Event{
		Action:     action,
		EntityType: auditmodels.EntityUser,
		EntityID:   entityID,
		UserID:     id.Subject,
		UserEmail:  id.Email,
		OrgID:      id.OrgID,
		Details:    details,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
}

func actorEvent(ctx context.Context, actor *access.Actor, action auditmodels.Action, entityID string, details auditmodels.Details) auditmodels.Event {
	ev := identityEvent(ctx, actor.Identity, action, entityID, details)
	ev.UserEmail = actor.Email()
	return ev
}

// membershipEvent attributes a provider-driven change to the affected user.
func membershipEvent(ctx context.Context, u *models.User, action auditmodels.Action, orgID string, details auditmodels.Details) auditmodels.Event {
	return auditmodels.Event{
		Action:     action,
		EntityType: auditmodels.EntityUser,
		EntityID:   u.ExternalID,
		UserID:     u.ExternalID,
		UserEmail:  u.Email,
		OrgID:      orgID,
		Details:    details,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
}
