package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freightdesk/internal/user/models"
	"freightdesk/pkg/domain"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

type Service interface {
	EnsureUserExists(ctx context.Context) (*models.User, error)
	CurrentWithOrg(ctx context.Context) (*models.CurrentUser, error)
	ListForOrg(ctx context.Context) ([]*models.User, error)
	SetRole(ctx context.Context, id domain.UserID, role domain.Role) (*models.User, error)
	Delete(ctx context.Context, id domain.UserID) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/users/me", h.handleMe)
	r.Post("/v1/users/me/sync", h.handleSync)
	r.Get("/v1/users", h.handleList)
	r.Put("/v1/users/{id}/role", h.handleSetRole)
	r.Delete("/v1/users/{id}", h.handleDelete)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cur, err := h.svc.CurrentWithOrg(ctx)
	if err != nil {
		h.fail(ctx, w, "load current user", err)
		return
	}
	if cur == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cur)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.svc.EnsureUserExists(ctx)
	if err != nil {
		h.fail(ctx, w, "sync current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.svc.ListForOrg(ctx)
	if err != nil {
		h.fail(ctx, w, "list users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Users: users, Count: len(users)})
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.SetRoleRequest
	if err := httputil.DecodeAndPrepare(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.svc.SetRole(ctx, id, req.Parsed())
	if err != nil {
		h.fail(ctx, w, "set user role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		h.fail(ctx, w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	Users []*models.User `json:"users"`
	Count int            `json:"count"`
}
