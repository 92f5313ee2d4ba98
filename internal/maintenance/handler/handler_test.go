package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"freightdesk/internal/maintenance/handler/mocks"
	"freightdesk/internal/maintenance/service"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r, svc
}

func TestSampleFlow(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().GenerateSampleFlow(gomock.Any()).Return(&service.SampleFlow{BookingID: "BK-TEST-ABC", EntryID: "01K", OrgID: "org_acme"}, nil)

	rr := testutil.Serve(r, testutil.JSONRequest(t, http.MethodPost, "/v1/maintenance/sample-flow", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"booking_id":"BK-TEST-ABC","entry_id":"01K","org_id":"org_acme"}`, rr.Body.String())
}

func TestSampleFlowWithoutOrganization(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().GenerateSampleFlow(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNoActiveOrganization, "no active organization"))

	rr := testutil.Serve(r, testutil.JSONRequest(t, http.MethodPost, "/v1/maintenance/sample-flow", nil))
	testutil.AssertError(t, rr, http.StatusForbidden, "no_active_organization")
}

func TestPurge(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().PurgeTestData(gomock.Any()).Return(int64(12), nil)

	rr := testutil.Serve(r, testutil.JSONRequest(t, http.MethodPost, "/v1/maintenance/purge-test-data", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":12}`, rr.Body.String())
}
