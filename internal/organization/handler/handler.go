package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freightdesk/internal/organization/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context) ([]*models.Organization, error)
	Get(ctx context.Context, id domain.OrganizationID) (*models.Organization, error)
	Suspend(ctx context.Context, id domain.OrganizationID, reason string) (*models.Organization, error)
	Activate(ctx context.Context, id domain.OrganizationID) (*models.Organization, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/organizations", h.handleList)
	r.Get("/v1/organizations/{id}", h.handleGet)
	r.Post("/v1/organizations/{id}/suspend", h.handleSuspend)
	r.Post("/v1/organizations/{id}/activate", h.handleActivate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgs, err := h.svc.List(ctx)
	if err != nil {
		h.fail(ctx, w, "list organizations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Organizations: orgs, Count: len(orgs)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseOrganizationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	org, err := h.svc.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

// handleSuspend accepts an empty body; the reason is optional.
func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseOrganizationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.SuspendRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeAndPrepare(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	org, err := h.svc.Suspend(ctx, id, req.Reason)
	if err != nil {
		h.fail(ctx, w, "suspend organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseOrganizationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	org, err := h.svc.Activate(ctx, id)
	if err != nil {
		h.fail(ctx, w, "activate organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
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

type listResponse struct {
	Organizations []*models.Organization `json:"organizations"`
	Count         int                    `json:"count"`
}
