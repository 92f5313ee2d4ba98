// Package requestid copies chi's request id onto the request context used by
// services and loggers.
package requestid

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"freightdesk/pkg/requestcontext"
)

// Middleware assigns a request id (honouring an inbound X-Request-Id) and
// echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimw.GetReqID(r.Context())
		w.Header().Set(chimw.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	}))
}
