package access

import (
	"context"
	"errors"
	"log/slog"

	"freightdesk/internal/identity"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/requestcontext"
)

// Member is the persisted view of a caller that authorization needs.
type Member struct {
	UserID domain.UserID
	Email  string
	Role   domain.Role
	OrgID  string
}

// UserLookup finds the persisted user behind an identity subject. It returns
// sentinel.ErrNotFound when the user has not been provisioned yet.
type UserLookup interface {
	FindMemberByExternalID(ctx context.Context, externalID string) (*Member, error)
}

// Actor is an authorized caller: the verified identity plus the persisted
// role that was checked.
type Actor struct {
	Identity *identity.Identity
	Member   *Member
}

func (a *Actor) Subject() string { return a.Identity.Subject }

// OrgID is the organization claim of the current request, which may differ
// from the org stored on the user record while a membership sync is pending.
func (a *Actor) OrgID() string { return a.Identity.OrgID }

// Email prefers the persisted address and falls back to the token claim.
func (a *Actor) Email() string {
	if a.Member.Email != "" {
		return a.Member.Email
	}
	return a.Identity.Email
}

// Gate checks capabilities against the persisted role, never the token claim.
type Gate struct {
	users   UserLookup
	logger  *slog.Logger
	metrics *Metrics
}

type GateOption func(*Gate)

func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

func WithMetrics(m *Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

func NewGate(users UserLookup, opts ...GateOption) *Gate {
	g := &Gate{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize resolves the caller and checks capability c. A caller with no
// user record is forbidden: provisioning races fail closed.
func (g *Gate) Authorize(ctx context.Context, c domain.Capability) (*Actor, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		g.observe(c, "unauthenticated")
		return nil, err
	}

	member, err := g.users.FindMemberByExternalID(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.observe(c, "no_user")
			g.logger.WarnContext(ctx, "authorization denied - user not provisioned",
				"subject", id.Subject,
				"capability", c,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.New(dErrors.CodeForbidden, "user not provisioned")
		}
		g.observe(c, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if !member.Role.Can(c) {
		g.observe(c, "denied")
		g.logger.WarnContext(ctx, "authorization denied - insufficient role",
			"subject", id.Subject,
			"role", member.Role.String(),
			"capability", c,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "insufficient role")
	}

	g.observe(c, "allowed")
	return &Actor{Identity: id, Member: member}, nil
}

// Permits runs Authorize for read paths: denial of any kind becomes
// (nil, false, nil) and only store failures are returned as errors.
func (g *Gate) Permits(ctx context.Context, c domain.Capability) (*Actor, bool, error) {
	actor, err := g.Authorize(ctx, c)
	if err == nil {
		return actor, true, nil
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		return nil, false, err
	}
	return nil, false, nil
}

// IsPlatformAdmin reports whether the caller's stored role is platform
// superadmin. It only reads, so repeated calls agree until the role changes.
func (g *Gate) IsPlatformAdmin(ctx context.Context) (bool, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return false, nil
	}
	member, err := g.users.FindMemberByExternalID(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return member.Role == domain.RolePlatformSuperadmin, nil
}

func (g *Gate) observe(c domain.Capability, outcome string) {
	if g.metrics != nil {
		g.metrics.IncDecision(c, outcome)
	}
}
