package servicekey

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newProtected(t *testing.T, hash string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Require(hash, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequire(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("sync-worker-key"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newProtected(t, string(hashed))

	t.Run("accepts matching key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/audit/events", nil)
		req.Header.Set(Header, "sync-worker-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/audit/events", nil)
		req.Header.Set(Header, "guess")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/audit/events", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireWithoutConfiguredHash(t *testing.T) {
	h := newProtected(t, "")
	req := httptest.NewRequest(http.MethodPost, "/internal/audit/events", nil)
	req.Header.Set(Header, "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHash(t *testing.T) {
	hashed, err := Hash("k")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("k")))

	_, err = Hash("")
	require.Error(t, err)
}
