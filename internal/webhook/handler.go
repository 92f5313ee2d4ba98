package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	orgmodels "freightdesk/internal/organization/models"
	usermodels "freightdesk/internal/user/models"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

const (
	maxBodyBytes = 1 << 20
	seenTTL      = 24 * time.Hour
)

type UserSync interface {
	UpsertFromProvider(ctx context.Context, p usermodels.ProviderUser) (*usermodels.User, error)
	DeleteFromProvider(ctx context.Context, externalID string) error
	UpdateOrgMembership(ctx context.Context, externalUserID, orgID, providerRole string) error
}

type OrganizationSync interface {
	UpsertFromProvider(ctx context.Context, p orgmodels.ProviderOrganization) (*orgmodels.Organization, error)
	DeleteFromProvider(ctx context.Context, externalID string) error
}

// Event is the provider's envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type deletedObject struct {
	ID string `json:"id"`
}

type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_webhook_events_total",
			Help: "Identity-provider webhook deliveries by event type and outcome",
		}, []string{"type", "outcome"}),
	}
}

type Handler struct {
	verifier *Verifier
	users    UserSync
	orgs     OrganizationSync
	dedupe   Deduper
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Handler)

func WithDeduper(d Deduper) Option {
	return func(h *Handler) { h.dedupe = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(verifier *Verifier, users UserSync, orgs OrganizationSync, opts ...Option) *Handler {
	h := &Handler{verifier: verifier, users: users, orgs: orgs, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/identity", h.handleIdentity)
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}

	msgID, err := h.verifier.Verify(r.Header, body)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook signature rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		h.observe("unknown", "rejected")
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook signature"))
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil || ev.Type == "" {
		h.observe("unknown", "malformed")
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid webhook payload"))
		return
	}

	if h.dedupe != nil {
		fresh, err := h.dedupe.Claim(ctx, msgID, seenTTL)
		if err != nil {
			// Best effort: the event is applied anyway.
			h.logger.WarnContext(ctx, "webhook dedupe unavailable", "error", err, "svix_id", msgID)
		} else if !fresh {
			h.observe(ev.Type, "duplicate")
			httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: "duplicate"})
			return
		}
	}

	handled, err := h.Dispatch(ctx, ev)
	if err != nil {
		if h.dedupe != nil {
			_ = h.dedupe.Release(ctx, msgID)
		}
		h.observe(ev.Type, "failed")
		h.logger.ErrorContext(ctx, "webhook event failed",
			"type", ev.Type,
			"svix_id", msgID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	status := "processed"
	if !handled {
		status = "ignored"
		h.logger.InfoContext(ctx, "ignored webhook event", "type", ev.Type)
	}
	h.observe(ev.Type, status)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: status})
}

// Dispatch applies ev. It reports false for event types it does not handle.
func (h *Handler) Dispatch(ctx context.Context, ev Event) (bool, error) {
	switch ev.Type {
	case "user.created", "user.updated":
		var p usermodels.ProviderUser
		if err := decode(ev, &p); err != nil {
			return true, err
		}
		_, err := h.users.UpsertFromProvider(ctx, p)
		return true, err

	case "user.deleted":
		var d deletedObject
		if err := decode(ev, &d); err != nil {
			return true, err
		}
		return true, h.users.DeleteFromProvider(ctx, d.ID)

	case "organization.created", "organization.updated":
		var p orgmodels.ProviderOrganization
		if err := decode(ev, &p); err != nil {
			return true, err
		}
		_, err := h.orgs.UpsertFromProvider(ctx, p)
		return true, err

	case "organization.deleted":
		var d deletedObject
		if err := decode(ev, &d); err != nil {
			return true, err
		}
		return true, h.orgs.DeleteFromProvider(ctx, d.ID)

	case "organizationMembership.created", "organizationMembership.updated":
		var m usermodels.ProviderMembership
		if err := decode(ev, &m); err != nil {
			return true, err
		}
		if m.UserID() == "" {
			return true, dErrors.New(dErrors.CodeValidation, "membership has no user id")
		}
		return true, h.users.UpdateOrgMembership(ctx, m.UserID(), m.OrgID(), m.Role)

	case "organizationMembership.deleted":
		var m usermodels.ProviderMembership
		if err := decode(ev, &m); err != nil {
			return true, err
		}
		if m.UserID() == "" {
			return true, dErrors.New(dErrors.CodeValidation, "membership has no user id")
		}
		return true, h.users.UpdateOrgMembership(ctx, m.UserID(), "", "")
	}
	return false, nil
}

func decode(ev Event, dst any) error {
	if len(ev.Data) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s event has no data", ev.Type))
	}
	if err := json.Unmarshal(ev.Data, dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return dErrors.New(dErrors.CodeBadRequest, "malformed event data")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("invalid %s event data", ev.Type))
	}
	return nil
}

var knownTypes = map[string]bool{
	"user.created": true, "user.updated": true, "user.deleted": true,
	"organization.created": true, "organization.updated": true, "organization.deleted": true,
	"organizationMembership.created": true, "organizationMembership.updated": true,
	"organizationMembership.deleted": true,
}

func (h *Handler) observe(eventType, outcome string) {
	if h.metrics == nil {
		return
	}
	if !knownTypes[eventType] {
		eventType = "other"
	}
	h.metrics.Events.WithLabelValues(eventType, outcome).Inc()
}

type statusResponse struct {
	Status string `json:"status"`
}
