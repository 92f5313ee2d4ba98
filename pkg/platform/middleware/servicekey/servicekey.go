// Package servicekey guards system-only routes with a shared key whose bcrypt
// hash lives in configuration.
package servicekey

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/requestcontext"
)

// Header carries the service key.
const Header = "X-Service-Key"

// Require rejects requests whose service key does not match hash. An empty
// hash disables the routes entirely.
func Require(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if hash == "" {
				logger.WarnContext(ctx, "system route called but no service key is configured",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "system routes are disabled"))
				return
			}

			key := r.Header.Get(Header)
			// bcrypt compares in constant time with respect to the key.
			if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				logger.WarnContext(ctx, "service key mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "service key required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Hash produces the configuration value for key.
func Hash(key string) (string, error) {
	if key == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "service key cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not hash service key")
	}
	return string(hashed), nil
}
