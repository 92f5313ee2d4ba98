// Package service provides the test-data tooling: generating sample audit
// flows in the caller's organization and purging test entries afterwards.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"freightdesk/internal/access"
	auditmodels "freightdesk/internal/audit/models"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/requestcontext"
)

const sampleBookingPrefix = "BK-TEST-"

type Recorder interface {
	LogEvent(ctx context.Context, ev auditmodels.Event) (domain.EntryID, error)
	PurgeTestEntries(ctx context.Context) (int64, error)
}

// SampleFlow identifies what GenerateSampleFlow wrote.
type SampleFlow struct {
	BookingID string         `json:"booking_id"`
	EntryID   domain.EntryID `json:"entry_id"`
	OrgID     string         `json:"org_id"`
}

type Service struct {
	exec   *access.Executor
	audit  Recorder
	logger *slog.Logger
}

func New(exec *access.Executor, audit Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{exec: exec, audit: audit, logger: logger}
}

// GenerateSampleFlow records booking.created for a fresh test booking in the
// caller's active organization.
func (s *Service) GenerateSampleFlow(ctx context.Context) (*SampleFlow, error) {
	id, orgID, err := access.RequireOrgMembership(ctx)
	if err != nil {
		return nil, err
	}
	flow := &SampleFlow{
		BookingID: sampleBookingPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]),
		OrgID:     orgID,
	}
	err = s.exec.Atomic(ctx, func(ctx context.Context) error {
		entryID, err := s.audit.LogEvent(ctx, auditmodels.Event{
			Action:     auditmodels.ActionBookingCreated,
			EntityType: auditmodels.EntityBooking,
			EntityID:   flow.BookingID,
			UserID:     id.Subject,
			UserEmail:  id.Email,
			OrgID:      orgID,
			Details: auditmodels.Details{
				"sample":      true,
				"origin":      "CNSHA",
				"destination": "NLRTM",
				"mode":        "ocean",
			},
			IPAddress: requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
		})
		flow.EntryID = entryID
		return err
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// PurgeTestData deletes audit entries for test entities. It is the only
// write path that removes audit entries and needs purge_test_data.
func (s *Service) PurgeTestData(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.exec.Mutate(ctx, domain.CapPurgeTestData, func(ctx context.Context, actor *access.Actor) error {
		n, err := s.audit.PurgeTestEntries(ctx)
		if err != nil {
			return err
		}
		deleted = n
		s.logger.InfoContext(ctx, "test data purged",
			"actor", actor.Subject(),
			"deleted", n,
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
