package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"freightdesk/internal/access"
	accessmocks "freightdesk/internal/access/mocks"
	auditmodels "freightdesk/internal/audit/models"
	auditservice "freightdesk/internal/audit/service"
	auditstore "freightdesk/internal/audit/store"
	"freightdesk/internal/platform/database"
	"freightdesk/internal/user/metrics"
	"freightdesk/internal/user/models"
	"freightdesk/internal/user/service"
	"freightdesk/internal/user/service/mocks"
	userstore "freightdesk/internal/user/store"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/testutil"
)

type passthroughTx struct{ calls int }

func (p *passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type UserSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	users   *mocks.MockStore
	audit   *mocks.MockAuditRecorder
	members *accessmocks.MockUserLookup
	tx      *passthroughTx
	svc     *service.Service
}

func TestUserSuite(t *testing.T) {
	suite.Run(t, new(UserSuite))
}

func (s *UserSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockStore(s.ctrl)
	s.audit = mocks.NewMockAuditRecorder(s.ctrl)
	s.members = accessmocks.NewMockUserLookup(s.ctrl)
	s.tx = &passthroughTx{}
	exec := access.NewExecutor(access.NewGate(s.members), s.tx)
	s.svc = service.New(s.users, exec, s.audit, service.WithMetrics(metrics.New(nil)))
}

func (s *UserSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UserSuite) expectRole(subject string, role domain.Role) {
	s.members.EXPECT().FindMemberByExternalID(gomock.Any(), subject).
		Return(&access.Member{UserID: domain.NewUserID(), Role: role}, nil)
}

func (s *UserSuite) expectAudit(action auditmodels.Action, check func(ev auditmodels.Event)) {
	s.audit.EXPECT().LogEvent(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev auditmodels.Event) (domain.EntryID, error) {
		s.Equal(action, ev.Action)
		if check != nil {
			check(ev)
		}
		return "01H", nil
	})
}

func storedUser(externalID string, role domain.Role, orgID string) *models.User {
	return &models.User{ID: domain.NewUserID(), ExternalID: externalID, Email: externalID + "@acme.test", Role: role, OrgID: orgID}
}

func (s *UserSuite) TestEnsureUserExists() {
	s.Run("creates a member and records the login", func() {
		ctx := testutil.As(context.Background(), "user_1",
			testutil.WithEmail("ada@acme.test"), testutil.WithRoleClaim(domain.RolePlatformSuperadmin), testutil.InOrg("org_acme"))
		s.users.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			s.Equal("user_1", u.ExternalID)
			s.Equal("ada@acme.test", u.Name, "email stands in for a missing name")
			s.Equal(domain.RoleMember, u.Role, "token role claims are never persisted")
			return nil
		})
		s.expectAudit(auditmodels.ActionUserLogin, func(ev auditmodels.Event) {
			s.Equal("user_1", ev.EntityID)
			s.Equal("user_1", ev.UserID)
			s.Equal("org_acme", ev.OrgID)
		})

		u, err := s.svc.EnsureUserExists(ctx)
		s.Require().NoError(err)
		s.Equal("user_1", u.ExternalID)
	})

	s.Run("anonymous", func() {
		_, err := s.svc.EnsureUserExists(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure", func() {
		s.users.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		_, err := s.svc.EnsureUserExists(testutil.As(context.Background(), "user_1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *UserSuite) TestCurrent() {
	s.Run("anonymous is nil", func() {
		u, err := s.svc.Current(context.Background())
		s.NoError(err)
		s.Nil(u)
	})

	s.Run("unsynced is nil", func() {
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_new").Return(nil, sentinel.ErrNotFound)
		u, err := s.svc.Current(testutil.As(context.Background(), "user_new"))
		s.NoError(err)
		s.Nil(u)
	})

	s.Run("with org claim", func() {
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_1").Return(storedUser("user_1", domain.RoleMember, "org_acme"), nil)
		cur, err := s.svc.CurrentWithOrg(testutil.As(context.Background(), "user_1", testutil.InOrg("org_acme")))
		s.Require().NoError(err)
		s.Equal("org_acme", cur.OrgID)
		s.Equal("user_1", cur.User.ExternalID)
	})
}

func (s *UserSuite) TestUpdateOrgMembership() {
	s.Run("join records org_joined and the role change", func() {
		u := storedUser("user_1", domain.RoleMember, "")
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_1").Return(u, nil)
		s.users.EXPECT().UpdateOrgMembership(gomock.Any(), u).Return(nil)
		s.expectAudit(auditmodels.ActionUserOrgJoined, func(ev auditmodels.Event) {
			s.Equal("org_acme", ev.OrgID)
			s.Equal("admin", ev.Details["role"])
		})
		s.expectAudit(auditmodels.ActionUserRoleChanged, func(ev auditmodels.Event) {
			s.Equal("member", ev.Details["from"])
			s.Equal("admin", ev.Details["to"])
		})

		s.Require().NoError(s.svc.UpdateOrgMembership(context.Background(), "user_1", "org_acme", "org:admin"))
		s.Equal("org_acme", u.OrgID)
		s.Equal(domain.RoleAdmin, u.Role)
	})

	s.Run("leave keeps the role", func() {
		u := storedUser("user_1", domain.RoleAdmin, "org_acme")
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_1").Return(u, nil)
		s.users.EXPECT().UpdateOrgMembership(gomock.Any(), u).Return(nil)
		s.expectAudit(auditmodels.ActionUserOrgLeft, func(ev auditmodels.Event) {
			s.Equal("org_acme", ev.OrgID)
		})

		s.Require().NoError(s.svc.UpdateOrgMembership(context.Background(), "user_1", "", ""))
		s.Empty(u.OrgID)
		s.Equal(domain.RoleAdmin, u.Role)
	})

	s.Run("superadmin keeps platform role", func() {
		u := storedUser("user_root", domain.RolePlatformSuperadmin, "org_acme")
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_root").Return(u, nil)
		s.users.EXPECT().UpdateOrgMembership(gomock.Any(), u).Return(nil)

		s.Require().NoError(s.svc.UpdateOrgMembership(context.Background(), "user_root", "org_acme", "org:member"))
		s.Equal(domain.RolePlatformSuperadmin, u.Role)
	})

	s.Run("unknown user is ignored", func() {
		s.users.EXPECT().FindByExternalID(gomock.Any(), "user_ghost").Return(nil, sentinel.ErrNotFound)
		s.NoError(s.svc.UpdateOrgMembership(context.Background(), "user_ghost", "org_acme", "org:admin"))
	})
}

func (s *UserSuite) TestSetRole() {
	s.Run("superadmin promotes", func() {
		u := storedUser("user_1", domain.RoleMember, "org_acme")
		s.expectRole("user_root", domain.RolePlatformSuperadmin)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().UpdateRole(gomock.Any(), u).Return(nil)
		s.expectAudit(auditmodels.ActionUserRoleChanged, func(ev auditmodels.Event) {
			s.Equal("user_1", ev.EntityID)
			s.Equal("user_root", ev.UserID)
			s.Equal(auditmodels.Details{"from": "member", "to": "admin"}, ev.Details)
		})

		got, err := s.svc.SetRole(testutil.As(context.Background(), "user_root"), u.ID, domain.RoleAdmin)
		s.Require().NoError(err)
		s.Equal(domain.RoleAdmin, got.Role)
	})

	s.Run("same role is not audited", func() {
		u := storedUser("user_1", domain.RoleAdmin, "")
		s.expectRole("user_root", domain.RolePlatformSuperadmin)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		_, err := s.svc.SetRole(testutil.As(context.Background(), "user_root"), u.ID, domain.RoleAdmin)
		s.NoError(err)
	})

	s.Run("admin may not change roles", func() {
		s.tx.calls = 0
		s.expectRole("user_admin", domain.RoleAdmin)
		_, err := s.svc.SetRole(testutil.As(context.Background(), "user_admin"), domain.NewUserID(), domain.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Zero(s.tx.calls)
	})

	s.Run("invalid role", func() {
		_, err := s.svc.SetRole(testutil.As(context.Background(), "user_root"), domain.NewUserID(), domain.RoleUnknown)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *UserSuite) TestDelete() {
	s.Run("admin deletes a member", func() {
		u := storedUser("user_1", domain.RoleMember, "org_acme")
		s.expectRole("user_admin", domain.RoleAdmin)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().Delete(gomock.Any(), u.ID).Return(nil)
		s.expectAudit("user.deleted", func(ev auditmodels.Event) {
			s.Equal("user_1", ev.EntityID)
		})
		s.NoError(s.svc.Delete(testutil.As(context.Background(), "user_admin"), u.ID))
	})

	s.Run("admin may not delete a superadmin", func() {
		u := storedUser("user_root", domain.RolePlatformSuperadmin, "")
		s.expectRole("user_admin", domain.RoleAdmin)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		err := s.svc.Delete(testutil.As(context.Background(), "user_admin"), u.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("member is forbidden", func() {
		s.expectRole("user_m", domain.RoleMember)
		err := s.svc.Delete(testutil.As(context.Background(), "user_m"), domain.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *UserSuite) TestListForOrg() {
	s.Run("org claim lists org members", func() {
		s.users.EXPECT().ListByOrg(gomock.Any(), "org_acme").Return([]*models.User{storedUser("user_1", domain.RoleMember, "org_acme")}, nil)
		got, err := s.svc.ListForOrg(testutil.As(context.Background(), "user_1", testutil.InOrg("org_acme")))
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("platform admin in personal scope lists everyone", func() {
		s.expectRole("user_root", domain.RolePlatformSuperadmin)
		s.users.EXPECT().ListAll(gomock.Any()).Return([]*models.User{{}, {}}, nil)
		got, err := s.svc.ListForOrg(testutil.As(context.Background(), "user_root"))
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("admin in personal scope sees nothing", func() {
		s.expectRole("user_admin", domain.RoleAdmin)
		got, err := s.svc.ListForOrg(testutil.As(context.Background(), "user_admin"))
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("anonymous sees nothing", func() {
		got, err := s.svc.ListForOrg(context.Background())
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *UserSuite) TestProviderSync() {
	s.Run("upsert names from provider profile", func() {
		s.users.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			s.Equal("Grace Hopper", u.Name)
			s.Equal("grace@acme.test", u.Email)
			return nil
		})
		_, err := s.svc.UpsertFromProvider(context.Background(), models.ProviderUser{
			ExternalID:     "user_2",
			FirstName:      "Grace",
			LastName:       "Hopper",
			EmailAddresses: []models.EmailAddress{{EmailAddress: "grace@acme.test"}},
		})
		s.NoError(err)
	})

	s.Run("delete of an unknown user is ignored", func() {
		s.users.EXPECT().DeleteByExternalID(gomock.Any(), "user_gone").Return(sentinel.ErrNotFound)
		s.NoError(s.svc.DeleteFromProvider(context.Background(), "user_gone"))
	})
}

// Sign-in, membership sync and a privileged role change against real stores.
func TestMembershipLifecycleWithSQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	txRunner := database.NewTxRunner(db, time.Second)
	users := userstore.New(db)
	gate := access.NewGate(users)
	entries := auditstore.New(db)
	recorder := auditservice.New(entries, txRunner, gate)
	svc := service.New(users, access.NewExecutor(gate, txRunner), recorder)
	ctx := context.Background()

	root, err := svc.EnsureUserExists(testutil.As(ctx, "user_root", testutil.WithEmail("root@fd.test")))
	require.NoError(t, err)
	root.Role = domain.RolePlatformSuperadmin
	require.NoError(t, users.UpdateRole(ctx, root))

	ada, err := svc.EnsureUserExists(testutil.As(ctx, "user_ada", testutil.WithEmail("ada@acme.test")))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateOrgMembership(ctx, "user_ada", "org_acme", "org:member"))

	_, err = svc.SetRole(testutil.As(ctx, "user_ada"), root.ID, domain.RoleMember)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := svc.SetRole(testutil.As(ctx, "user_root"), ada.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	history, err := recorder.GetEntityLogs(testutil.As(ctx, "user_root"), auditmodels.EntityUser, "user_ada")
	require.NoError(t, err)
	actions := make([]auditmodels.Action, 0, len(history))
	for _, e := range history {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []auditmodels.Action{
		auditmodels.ActionUserRoleChanged,
		auditmodels.ActionUserOrgJoined,
		auditmodels.ActionUserLogin,
	}, actions)

	members, err := svc.ListForOrg(testutil.As(ctx, "user_ada", testutil.InOrg("org_acme")))
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "user_ada", members[0].ExternalID)
}
