// Package service is the audit trail recorder: it appends immutable entries
// and serves the admin and per-entity read paths.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freightdesk/internal/access"
	"freightdesk/internal/audit/metrics"
	"freightdesk/internal/audit/models"
	"freightdesk/internal/identity"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, e *models.Entry) error
	ListRecent(ctx context.Context, limit int) ([]*models.Entry, error)
	ListByEntityType(ctx context.Context, entityType string, limit int) ([]*models.Entry, error)
	ListByAction(ctx context.Context, action models.Action, limit int) ([]*models.Entry, error)
	DeleteByEntityIDPrefixes(ctx context.Context, prefixes []string) (int64, error)
}

// Outbox queues entries for asynchronous publication.
type Outbox interface {
	Enqueue(ctx context.Context, msg models.OutboxMessage) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service records and reads audit entries. Inserts join the transaction
// already in ctx, so a failed insert fails the caller's whole mutation.
type Service struct {
	store   Store
	tx      TxRunner
	gate    *access.Gate
	outbox  Outbox
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu   sync.Mutex
	last int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOutbox enqueues every entry for Kafka in the same transaction.
func WithOutbox(o Outbox) Option {
	return func(s *Service) { s.outbox = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store Store, tx TxRunner, gate *access.Gate, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		gate:   gate,
		logger: slog.Default(),
		tracer: otel.Tracer("freightdesk/internal/audit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEvent records ev as given. It needs no caller identity and serves
// system-originated events such as provider sync.
func (s *Service) LogEvent(ctx context.Context, ev models.Event) (domain.EntryID, error) {
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return "", err
	}
	return s.record(ctx, ev, "event")
}

// Log records an event on behalf of the caller. The actor, email and org are
// taken from the resolved identity only; with no identity the entry has no
// actor. Client address and user agent come from request metadata.
func (s *Service) Log(ctx context.Context, req models.LogRequest) (domain.EntryID, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}
	ev := models.Event{
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Details:    req.Details,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
	if id, ok := identity.FromContext(ctx); ok {
		ev.UserID = id.Subject
		ev.UserEmail = id.Email
		ev.OrgID = id.OrgID
	}
	return s.record(ctx, ev, "log")
}

func (s *Service) record(ctx context.Context, ev models.Event, path string) (domain.EntryID, error) {
	ctx, span := s.tracer.Start(ctx, "audit.record", trace.WithAttributes(
		attribute.String("audit.action", string(ev.Action)),
		attribute.String("audit.entity_type", ev.EntityType),
	))
	defer span.End()

	ts := s.stamp(ctx)
	entry := &models.Entry{
		ID:         domain.NewEntryID(time.UnixMilli(ts)),
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		UserID:     ev.UserID,
		UserEmail:  ev.UserEmail,
		OrgID:      ev.OrgID,
		Details:    ev.Details,
		IPAddress:  ev.IPAddress,
		UserAgent:  ev.UserAgent,
		Timestamp:  ts,
	}

	start := time.Now()
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, entry); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode outbox payload: %w", err)
		}
		return s.outbox.Enqueue(ctx, models.OutboxMessage{
			EntryID:   entry.ID,
			Key:       entry.EntityType,
			Payload:   payload,
			CreatedAt: ts,
		})
	})
	if s.metrics != nil {
		s.metrics.ObserveAppend(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit persistence failed")
		if s.metrics != nil {
			s.metrics.IncPersistFailure()
		}
		s.logger.ErrorContext(ctx, "CRITICAL: audit persistence failed",
			"error", err,
			"action", string(entry.Action),
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"user_id", entry.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return "", err
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}

	span.SetAttributes(attribute.String("audit.entry_id", entry.ID.String()))
	if s.metrics != nil {
		s.metrics.IncRecorded(entry.EntityType, path)
	}
	return entry.ID, nil
}

// stamp returns the entry time in unix ms, never earlier than the previous
// stamp from this recorder.
func (s *Service) stamp(ctx context.Context) int64 {
	ts := requestcontext.Now(ctx).UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts < s.last {
		ts = s.last
	}
	s.last = ts
	return ts
}

// ListLogs returns entries newest first for callers allowed to view the audit
// log, and an empty list for everyone else. EntityType takes precedence over
// Action; with neither, the most recent entries are returned.
func (s *Service) ListLogs(ctx context.Context, f models.Filter) ([]*models.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "audit.list_logs")
	defer span.End()

	entries, err := access.Query(ctx, s.gate, domain.CapViewAuditLog,
		func(ctx context.Context, _ *access.Actor) ([]*models.Entry, error) {
			limit := f.EffectiveLimit()
			start := time.Now()
			var (
				index   string
				entries []*models.Entry
				err     error
			)
			switch {
			case f.EntityType != "":
				index = "entity_type"
				entries, err = s.store.ListByEntityType(ctx, f.EntityType, limit)
			case f.Action != "":
				index = "action"
				entries, err = s.store.ListByAction(ctx, f.Action, limit)
			default:
				index = "recent"
				entries, err = s.store.ListRecent(ctx, limit)
			}
			if s.metrics != nil {
				s.metrics.ObserveList(index, start)
			}
			span.SetAttributes(attribute.String("audit.index", index))
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
			}
			return entries, nil
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entries, nil
}

// GetEntityLogs returns the history of one entity, newest first, to any
// authenticated caller; anonymous callers get an empty history. The entity type partition is scanned and filtered on
// entity id in memory.
func (s *Service) GetEntityLogs(ctx context.Context, entityType, entityID string) ([]*models.Entry, error) {
	if _, err := access.RequireAuth(ctx); err != nil {
		return []*models.Entry{}, nil
	}
	if entityType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity_type is required")
	}

	ctx, span := s.tracer.Start(ctx, "audit.get_entity_logs", trace.WithAttributes(
		attribute.String("audit.entity_type", entityType),
	))
	defer span.End()

	start := time.Now()
	partition, err := s.store.ListByEntityType(ctx, entityType, 0)
	if s.metrics != nil {
		s.metrics.ObserveList("entity", start)
	}
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity history")
	}

	out := make([]*models.Entry, 0)
	for _, e := range partition {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	span.SetAttributes(attribute.Int("audit.partition_size", len(partition)))
	return out, nil
}

// PurgeTestEntries deletes entries whose entity id carries a test-data
// prefix. Callers are responsible for the capability check.
func (s *Service) PurgeTestEntries(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteByEntityIDPrefixes(ctx, models.TestEntityPrefixes)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge test audit entries")
	}
	if s.metrics != nil {
		s.metrics.AddPurged(n)
	}
	s.logger.InfoContext(ctx, "purged test audit entries",
		"deleted", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return n, nil
}
