package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"freightdesk/internal/organization/handler/mocks"
	"freightdesk/internal/organization/models"
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

func (s *HandlerSuite) TestList() {
	s.svc.EXPECT().List(gomock.Any()).Return([]*models.Organization{}, nil)
	rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/organizations", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"organizations":[],"count":0}`, rr.Body.String())
}

func (s *HandlerSuite) TestGet() {
	s.Run("malformed id", func() {
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/organizations/not-a-uuid", nil))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("hidden organization", func() {
		id := domain.NewOrganizationID()
		s.svc.EXPECT().Get(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "organization not found"))
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/organizations/"+id.String(), nil))
		testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("ids are rendered as strings", func() {
		org := &models.Organization{ID: domain.NewOrganizationID(), ExternalID: "org_acme", Name: "Acme", Status: models.StatusActive}
		s.svc.EXPECT().Get(gomock.Any(), org.ID).Return(org, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodGet, "/v1/organizations/"+org.ID.String(), nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.Decode[map[string]any](s.T(), rr)
		s.Equal(org.ID.String(), body["id"])
		s.Equal("active", body["status"])
	})
}

func (s *HandlerSuite) TestSuspend() {
	id := domain.NewOrganizationID()
	path := "/v1/organizations/" + id.String() + "/suspend"

	s.Run("reason from the body", func() {
		s.svc.EXPECT().Suspend(gomock.Any(), id, "chargeback").
			Return(&models.Organization{ID: id, Status: models.StatusSuspended}, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, path, map[string]string{"reason": "  chargeback "}))
		s.Require().Equal(http.StatusOK, rr.Code)
	})

	s.Run("empty body", func() {
		s.svc.EXPECT().Suspend(gomock.Any(), id, "").
			Return(&models.Organization{ID: id, Status: models.StatusSuspended}, nil)
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, path, nil))
		s.Require().Equal(http.StatusOK, rr.Code)
	})

	s.Run("overlong reason", func() {
		body := map[string]string{"reason": strings.Repeat("x", 501)}
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, path, body))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("member is forbidden", func() {
		s.svc.EXPECT().Suspend(gomock.Any(), id, "").Return(nil, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
		rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, path, nil))
		testutil.AssertError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestActivate() {
	id := domain.NewOrganizationID()
	s.svc.EXPECT().Activate(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeConflict, "organization is already active"))
	rr := testutil.Serve(s.router, testutil.JSONRequest(s.T(), http.MethodPost, "/v1/organizations/"+id.String()+"/activate", nil))
	testutil.AssertError(s.T(), rr, http.StatusConflict, "conflict")
}
