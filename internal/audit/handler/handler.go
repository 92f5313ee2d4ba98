package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"freightdesk/internal/audit/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

// Service is the audit recorder as seen by HTTP.
type Service interface {
	LogEvent(ctx context.Context, ev models.Event) (domain.EntryID, error)
	Log(ctx context.Context, req models.LogRequest) (domain.EntryID, error)
	ListLogs(ctx context.Context, f models.Filter) ([]*models.Entry, error)
	GetEntityLogs(ctx context.Context, entityType, entityID string) ([]*models.Entry, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the read routes. They expect an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/audit/events", h.handleListLogs)
	r.Get("/v1/audit/entities/{entityType}/{entityID}", h.handleGetEntityLogs)
}

// RegisterLog mounts the caller-attributed log route. Authentication is
// optional there; the router applies the rate limit.
func (h *Handler) RegisterLog(r chi.Router) {
	r.Post("/v1/audit/events", h.handleLog)
}

// RegisterInternal mounts the system logEvent route behind the service key.
func (h *Handler) RegisterInternal(r chi.Router) {
	r.Post("/internal/audit/events", h.handleLogEvent)
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LogRequest
	if err := httputil.DecodeAndPrepare(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := h.svc.Log(ctx, req)
	if err != nil {
		h.fail(ctx, w, "log audit event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordedResponse{ID: id.String()})
}

func (h *Handler) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var ev models.Event
	if err := httputil.DecodeAndPrepare(r, &ev); err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := h.svc.LogEvent(ctx, ev)
	if err != nil {
		h.fail(ctx, w, "record system audit event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordedResponse{ID: id.String()})
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	f := models.Filter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		Action:     models.Action(strings.TrimSpace(q.Get("action"))),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		f.Limit = n
	}

	entries, err := h.svc.ListLogs(ctx, f)
	if err != nil {
		h.fail(ctx, w, "list audit events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(entries))
}

func (h *Handler) handleGetEntityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType, err := url.PathUnescape(chi.URLParam(r, "entityType"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity type"))
		return
	}
	entityID, err := url.PathUnescape(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity id"))
		return
	}
	entries, err := h.svc.GetEntityLogs(ctx, entityType, entityID)
	if err != nil {
		h.fail(ctx, w, "get entity audit events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(entries))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
