// Package outbox relays committed audit entries from the audit_outbox table
// to Kafka.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freightdesk/internal/audit/metrics"
	"freightdesk/internal/audit/models"
	"freightdesk/internal/platform/kafka"
	"freightdesk/pkg/platform/circuit"
)

type Queue interface {
	FetchPending(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkPublished(ctx context.Context, seqs []int64, at int64) error
	Pending(ctx context.Context) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls the outbox and publishes rows oldest first. Delivery is at
// least once: a crash between publish and mark re-sends the batch.
type Relay struct {
	queue     Queue
	publisher Publisher
	breaker   *circuit.Breaker
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) { r.breaker = b }
}

func NewRelay(queue Queue, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		queue:     queue,
		publisher: publisher,
		breaker:   circuit.New("kafka", circuit.WithFailureThreshold(3), circuit.WithCooldown(15*time.Second)),
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
		tracer:    otel.Tracer("freightdesk/internal/audit/outbox"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Publish failures are logged and retried
// on later ticks; they never stop the loop.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "audit outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "audit outbox relay stopped")
			return nil
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		n, err := r.Tick(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.WarnContext(ctx, "audit outbox publish failed", "error", err)
			}
			return
		}
		if n < r.batchSize {
			return
		}
	}
}

// Tick publishes one batch and returns how many rows it delivered. It does
// nothing while the breaker is open and no probe is due.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		return 0, nil
	}

	ctx, span := r.tracer.Start(ctx, "audit.outbox.tick")
	defer span.End()

	batch, err := r.queue.FetchPending(ctx, r.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(batch) == 0 {
		r.setPending(ctx)
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(batch))
	seqs := make([]int64, 0, len(batch))
	for _, m := range batch {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.Key),
			Value: m.Payload,
			Headers: map[string]string{
				"entry_id":     m.EntryID.String(),
				"content-type": "application/json",
			},
		})
		seqs = append(seqs, m.Seq)
	}
	span.SetAttributes(attribute.Int("outbox.batch", len(batch)))

	if err := r.publisher.Publish(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		if r.metrics != nil {
			r.metrics.IncPublishFailure()
		}
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "kafka circuit opened, pausing audit outbox relay", "breaker", r.breaker.Name())
		}
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "kafka circuit closed, audit outbox relay resumed", "breaker", r.breaker.Name())
	}

	if err := r.queue.MarkPublished(ctx, seqs, r.now().UnixMilli()); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if r.metrics != nil {
		r.metrics.AddPublished(len(batch))
	}
	r.setPending(ctx)
	return len(batch), nil
}

func (r *Relay) setPending(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	n, err := r.queue.Pending(ctx)
	if err != nil {
		return
	}
	r.metrics.SetPending(n)
}
