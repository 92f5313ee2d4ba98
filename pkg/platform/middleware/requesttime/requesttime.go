// Package requesttime stamps each request with a single "now" so every audit
// entry and domain timestamp written by that request agrees.
package requesttime

import (
	"net/http"
	"time"

	"freightdesk/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
