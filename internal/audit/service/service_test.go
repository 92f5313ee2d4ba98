package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"freightdesk/internal/access"
	accessmocks "freightdesk/internal/access/mocks"
	"freightdesk/internal/audit/metrics"
	"freightdesk/internal/audit/models"
	"freightdesk/internal/audit/service"
	"freightdesk/internal/audit/service/mocks"
	auditstore "freightdesk/internal/audit/store"
	"freightdesk/internal/platform/database"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/sentinel"
	"freightdesk/pkg/requestcontext"
	"freightdesk/pkg/testutil"
)

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type RecorderSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	store  *mocks.MockStore
	outbox *mocks.MockOutbox
	users  *accessmocks.MockUserLookup
	svc    *service.Service
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.outbox = mocks.NewMockOutbox(s.ctrl)
	s.users = accessmocks.NewMockUserLookup(s.ctrl)
	s.svc = service.New(s.store, passthroughTx{}, access.NewGate(s.users),
		service.WithOutbox(s.outbox),
		service.WithMetrics(metrics.New(nil)),
	)
}

func (s *RecorderSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RecorderSuite) expectRole(subject string, role domain.Role) {
	s.users.EXPECT().FindMemberByExternalID(gomock.Any(), subject).
		Return(&access.Member{UserID: domain.NewUserID(), Role: role}, nil)
}

var fixed = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func (s *RecorderSuite) TestLogEvent() {
	s.Run("stores the event as given and queues it", func() {
		ctx := requestcontext.WithTime(context.Background(), fixed)
		var stored *models.Entry
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Entry) error {
			stored = e
			return nil
		})
		s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg models.OutboxMessage) error {
			s.Equal(models.EntityUser, msg.Key)
			var decoded map[string]any
			s.Require().NoError(json.Unmarshal(msg.Payload, &decoded))
			s.Equal("user.org_joined", decoded["action"])
			s.Equal("user_42", decoded["user_id"])
			return nil
		})

		id, err := s.svc.LogEvent(ctx, models.Event{
			Action:     models.ActionUserOrgJoined,
			EntityType: models.EntityUser,
			EntityID:   "user_42",
			UserID:     "user_42",
			OrgID:      "org_acme",
			Details:    models.Details{"role": "admin"},
		})
		s.Require().NoError(err)
		s.Require().NotNil(stored)
		s.Equal(id, stored.ID)
		s.Equal(fixed.UnixMilli(), stored.Timestamp)
		s.Equal("org_acme", stored.OrgID)
		s.Equal("admin", stored.Details["role"])
	})

	s.Run("invalid action never reaches the store", func() {
		_, err := s.svc.LogEvent(context.Background(), models.Event{Action: "Booking Created", EntityType: "booking"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing entity type", func() {
		_, err := s.svc.LogEvent(context.Background(), models.Event{Action: models.ActionBookingCreated})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("ad hoc action of the right shape is accepted", func() {
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
		_, err := s.svc.LogEvent(context.Background(), models.Event{Action: "waitlist.joined", EntityType: "waitlist"})
		s.NoError(err)
	})

	s.Run("store failure is fatal and skips the outbox", func() {
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
		_, err := s.svc.LogEvent(context.Background(), models.Event{Action: models.ActionPaymentFailed, EntityType: models.EntityPayment})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("outbox failure fails the insert", func() {
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		_, err := s.svc.LogEvent(context.Background(), models.Event{Action: models.ActionPaymentFailed, EntityType: models.EntityPayment})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *RecorderSuite) TestTimestampsNeverGoBackwards() {
	var stamps []int64
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Entry) error {
		stamps = append(stamps, e.Timestamp)
		return nil
	}).Times(3)
	s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	ev := models.Event{Action: models.ActionShipmentUpdated, EntityType: models.EntityShipment}
	for _, at := range []time.Time{fixed, fixed.Add(-time.Second), fixed.Add(time.Second)} {
		_, err := s.svc.LogEvent(requestcontext.WithTime(context.Background(), at), ev)
		s.Require().NoError(err)
	}
	s.Equal([]int64{fixed.UnixMilli(), fixed.UnixMilli(), fixed.Add(time.Second).UnixMilli()}, stamps)
}

func (s *RecorderSuite) TestLog() {
	s.Run("actor comes from the identity", func() {
		ctx := testutil.As(context.Background(), "user_7", testutil.InOrg("org_acme"), testutil.WithEmail("ops@acme.test"))
		ctx = testutil.WithClient(ctx, "203.0.113.9", "Mozilla/5.0")
		var stored *models.Entry
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Entry) error {
			stored = e
			return nil
		})
		s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.svc.Log(ctx, models.LogRequest{
			Action:     models.ActionDocumentViewed,
			EntityType: models.EntityDocument,
			EntityID:   "DOC-1",
		})
		s.Require().NoError(err)
		s.Equal("user_7", stored.UserID)
		s.Equal("ops@acme.test", stored.UserEmail)
		s.Equal("org_acme", stored.OrgID)
		s.Equal("203.0.113.9", stored.IPAddress)
		s.Equal("Mozilla/5.0", stored.UserAgent)
	})

	s.Run("anonymous caller is recorded without an actor", func() {
		var stored *models.Entry
		s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Entry) error {
			stored = e
			return nil
		})
		s.outbox.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.svc.Log(context.Background(), models.LogRequest{Action: models.ActionBookingCreated, EntityType: models.EntityBooking})
		s.Require().NoError(err)
		s.Empty(stored.UserID)
		s.Empty(stored.OrgID)
	})
}

func (s *RecorderSuite) TestListLogs() {
	entries := []*models.Entry{{ID: "01B"}, {ID: "01A"}}

	s.Run("entity type wins over action", func() {
		s.expectRole("user_admin", domain.RoleAdmin)
		s.store.EXPECT().ListByEntityType(gomock.Any(), models.EntityBooking, models.DefaultLimit).Return(entries, nil)
		got, err := s.svc.ListLogs(testutil.As(context.Background(), "user_admin"),
			models.Filter{EntityType: models.EntityBooking, Action: models.ActionPaymentFailed})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("action index", func() {
		s.expectRole("user_admin", domain.RoleAdmin)
		s.store.EXPECT().ListByAction(gomock.Any(), models.ActionBookingApproved, 5).Return(entries[:1], nil)
		got, err := s.svc.ListLogs(testutil.As(context.Background(), "user_admin"),
			models.Filter{Action: models.ActionBookingApproved, Limit: 5})
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("no filter scans recent entries with capped limit", func() {
		s.expectRole("user_root", domain.RolePlatformSuperadmin)
		s.store.EXPECT().ListRecent(gomock.Any(), models.MaxLimit).Return(entries, nil)
		_, err := s.svc.ListLogs(testutil.As(context.Background(), "user_root"), models.Filter{Limit: 50000})
		s.Require().NoError(err)
	})

	s.Run("member sees nothing", func() {
		s.expectRole("user_m", domain.RoleMember)
		got, err := s.svc.ListLogs(testutil.As(context.Background(), "user_m"), models.Filter{})
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("unprovisioned user sees nothing", func() {
		s.users.EXPECT().FindMemberByExternalID(gomock.Any(), "user_new").Return(nil, sentinel.ErrNotFound)
		got, err := s.svc.ListLogs(testutil.As(context.Background(), "user_new"), models.Filter{})
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("anonymous sees nothing", func() {
		got, err := s.svc.ListLogs(context.Background(), models.Filter{})
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("store failure propagates", func() {
		s.expectRole("user_admin", domain.RoleAdmin)
		s.store.EXPECT().ListRecent(gomock.Any(), models.DefaultLimit).Return(nil, errors.New("timeout"))
		_, err := s.svc.ListLogs(testutil.As(context.Background(), "user_admin"), models.Filter{})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *RecorderSuite) TestGetEntityLogs() {
	s.Run("anonymous caller sees an empty history", func() {
		got, err := s.svc.GetEntityLogs(context.Background(), models.EntityBooking, "BK-1")
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("filters the partition on entity id", func() {
		partition := []*models.Entry{
			{ID: "05", EntityID: "BK-2"},
			{ID: "04", EntityID: "BK-1"},
			{ID: "03", EntityID: "BK-3"},
			{ID: "02", EntityID: "BK-1"},
			{ID: "01", EntityID: ""},
		}
		s.store.EXPECT().ListByEntityType(gomock.Any(), models.EntityBooking, 0).Return(partition, nil)
		got, err := s.svc.GetEntityLogs(testutil.As(context.Background(), "user_m"), models.EntityBooking, "BK-1")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(domain.EntryID("04"), got[0].ID)
		s.Equal(domain.EntryID("02"), got[1].ID)
	})

	s.Run("unknown entity is an empty history", func() {
		s.store.EXPECT().ListByEntityType(gomock.Any(), models.EntityBooking, 0).Return(nil, nil)
		got, err := s.svc.GetEntityLogs(testutil.As(context.Background(), "user_m"), models.EntityBooking, "BK-404")
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})
}

func (s *RecorderSuite) TestPurgeTestEntries() {
	s.store.EXPECT().DeleteByEntityIDPrefixes(gomock.Any(), models.TestEntityPrefixes).Return(int64(12), nil)
	n, err := s.svc.PurgeTestEntries(context.Background())
	s.Require().NoError(err)
	s.EqualValues(12, n)
}

// Recorder against the embedded database: ordering and entity filtering are
// checked end to end through the real store.
func TestRecorderWithSQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctrl := gomock.NewController(t)
	users := accessmocks.NewMockUserLookup(ctrl)
	users.EXPECT().FindMemberByExternalID(gomock.Any(), "user_admin").
		Return(&access.Member{Role: domain.RoleAdmin}, nil).AnyTimes()

	store := auditstore.New(db)
	svc := service.New(store, database.NewTxRunner(db, time.Second), access.NewGate(users),
		service.WithOutbox(auditstore.NewOutbox(db)))

	ctx := context.Background()
	record := func(at time.Time, entityID string) domain.EntryID {
		id, err := svc.LogEvent(requestcontext.WithTime(ctx, at), models.Event{
			Action:     models.ActionShipmentStatusChanged,
			EntityType: models.EntityShipment,
			EntityID:   entityID,
		})
		require.NoError(t, err)
		return id
	}
	t1 := record(fixed, "SH-1")
	other := record(fixed.Add(time.Second), "SH-2")
	t2 := record(fixed.Add(2*time.Second), "SH-1")
	t3 := record(fixed.Add(2*time.Second), "SH-1")

	admin := testutil.As(ctx, "user_admin")
	listed, err := svc.ListLogs(admin, models.Filter{EntityType: models.EntityShipment})
	require.NoError(t, err)
	got := make([]domain.EntryID, 0, len(listed))
	for _, e := range listed {
		got = append(got, e.ID)
	}
	assert.Equal(t, []domain.EntryID{t3, t2, other, t1}, got)

	history, err := svc.GetEntityLogs(admin, models.EntityShipment, "SH-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, t3, history[0].ID)
	assert.Equal(t, t1, history[2].ID)

	pending, err := auditstore.NewOutbox(db).Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, pending)
}
