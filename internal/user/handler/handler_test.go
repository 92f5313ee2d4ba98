package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"freightdesk/internal/user/handler/mocks"
	"freightdesk/internal/user/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	svc    *mocks.MockService
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.svc = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.svc, slog.New(slog.DiscardHandler)).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestMe() {
	s.Run("unsynced user renders null", func() {
		s.svc.EXPECT().CurrentWithOrg(gomock.Any()).Return(&models.CurrentUser{OrgID: "org_acme"}, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/users/me", nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"user":null,"org_id":"org_acme"}`, rr.Body.String())
	})

	s.Run("anonymous", func() {
		s.svc.EXPECT().CurrentWithOrg(gomock.Any()).Return(nil, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/users/me", nil))
		testutil.AssertError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestSync() {
	u := &models.User{ID: domain.NewUserID(), ExternalID: "user_1", Role: domain.RoleMember}
	s.svc.EXPECT().EnsureUserExists(gomock.Any()).Return(u, nil)
	rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/v1/users/me/sync", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.Decode[map[string]any](s.T(), rr)
	s.Equal("member", body["role"])
	s.Equal(u.ID.String(), body["id"])
}

func (s *HandlerSuite) TestList() {
	s.svc.EXPECT().ListForOrg(gomock.Any()).Return([]*models.User{}, nil)
	rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/users", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"users":[],"count":0}`, rr.Body.String())
}

func (s *HandlerSuite) TestSetRole() {
	id := domain.NewUserID()
	path := "/v1/users/" + id.String() + "/role"

	s.Run("parsed role reaches the service", func() {
		s.svc.EXPECT().SetRole(gomock.Any(), id, domain.RolePlatformSuperadmin).
			Return(&models.User{ID: id, Role: domain.RolePlatformSuperadmin}, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPut, path, map[string]string{"role": "platform:superadmin"}))
		s.Require().Equal(http.StatusOK, rr.Code)
	})

	s.Run("unknown role", func() {
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPut, path, map[string]string{"role": "owner"}))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("forbidden", func() {
		s.svc.EXPECT().SetRole(gomock.Any(), id, domain.RoleAdmin).Return(nil, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPut, path, map[string]string{"role": "admin"}))
		testutil.AssertError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestDelete() {
	s.Run("no content", func() {
		id := domain.NewUserID()
		s.svc.EXPECT().Delete(gomock.Any(), id).Return(nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodDelete, "/v1/users/"+id.String(), nil))
		s.Equal(http.StatusNoContent, rr.Code)
	})

	s.Run("bad id", func() {
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodDelete, "/v1/users/42", nil))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}
