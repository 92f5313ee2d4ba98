package identity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

// Revoker records a token id as revoked until ttl elapses.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Handler serves the session endpoints that act on the caller's own token.
type Handler struct {
	revocations Revoker
	logger      *slog.Logger
}

func NewHandler(revocations Revoker, logger *slog.Logger) *Handler {
	return &Handler{revocations: revocations, logger: logger}
}

// Register mounts the routes. The auth middleware must run before them.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/logout", h.handleLogout)
	r.Get("/v1/auth/whoami", h.handleWhoAmI)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if id.TokenID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token cannot be revoked"))
		return
	}

	ttl := time.Until(id.ExpiresAt)
	if err := h.revocations.Revoke(ctx, id.TokenID, ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token"))
		return
	}

	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"subject", id.Subject,
	)
	w.WriteHeader(http.StatusNoContent)
}

type whoAmIResponse struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	OrgID   string `json:"org_id,omitempty"`
	Role    string `json:"role"`
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, whoAmIResponse{
		Subject: id.Subject,
		Email:   id.Email,
		OrgID:   id.OrgID,
		Role:    id.Role.String(),
	})
}
