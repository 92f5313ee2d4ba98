package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freightdesk/internal/maintenance/service"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

type Service interface {
	GenerateSampleFlow(ctx context.Context) (*service.SampleFlow, error)
	PurgeTestData(ctx context.Context) (int64, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/maintenance/sample-flow", h.handleSampleFlow)
	r.Post("/v1/maintenance/purge-test-data", h.handlePurge)
}

func (h *Handler) handleSampleFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flow, err := h.svc.GenerateSampleFlow(ctx)
	if err != nil {
		h.fail(ctx, w, "generate sample flow", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, flow)
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.svc.PurgeTestData(ctx)
	if err != nil {
		h.fail(ctx, w, "purge test data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, purgeResponse{Deleted: n})
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

type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}
