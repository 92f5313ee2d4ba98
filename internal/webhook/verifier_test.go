package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("freightdesk-webhook-test-key-32b"))

func fixedVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, 0)
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func signedHeaders(t *testing.T, v *Verifier, id string, ts time.Time, body []byte) http.Header {
	t.Helper()
	sig, err := v.Sign(id, ts, body)
	require.NoError(t, err)
	h := http.Header{}
	h.Set(headerID, id)
	h.Set(headerTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(headerSignature, sig)
	return h
}

func TestVerify(t *testing.T) {
	now := time.Unix(1_767_000_000, 0)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	v := fixedVerifier(t, now)

	t.Run("valid", func(t *testing.T) {
		id, err := v.Verify(signedHeaders(t, v, "msg_1", now, body), body)
		require.NoError(t, err)
		assert.Equal(t, "msg_1", id)
	})

	t.Run("any matching entry among several", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_1", now, body)
		h.Set(headerSignature, "v1,bm90LWl0 v2,ignored "+h.Get(headerSignature))
		_, err := v.Verify(h, body)
		assert.NoError(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		_, err := v.Verify(signedHeaders(t, v, "msg_1", now, body), []byte(`{"type":"user.deleted"}`))
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("signature from another secret", func(t *testing.T) {
		other, err := NewVerifier(base64.StdEncoding.EncodeToString([]byte("another-secret")), 0)
		require.NoError(t, err)
		_, err = v.Verify(signedHeaders(t, other, "msg_1", now, body), body)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("too old", func(t *testing.T) {
		_, err := v.Verify(signedHeaders(t, v, "msg_1", now.Add(-6*time.Minute), body), body)
		assert.ErrorIs(t, err, ErrTimestampSkew)
	})

	t.Run("too far in the future", func(t *testing.T) {
		_, err := v.Verify(signedHeaders(t, v, "msg_1", now.Add(6*time.Minute), body), body)
		assert.ErrorIs(t, err, ErrTimestampSkew)
	})

	t.Run("inside tolerance", func(t *testing.T) {
		_, err := v.Verify(signedHeaders(t, v, "msg_1", now.Add(-4*time.Minute), body), body)
		assert.NoError(t, err)
	})

	t.Run("missing headers", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_1", now, body)
		h.Del(headerID)
		_, err := v.Verify(h, body)
		assert.ErrorIs(t, err, ErrMissingHeaders)
	})

	t.Run("non-numeric timestamp", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_1", now, body)
		h.Set(headerTimestamp, "yesterday")
		_, err := v.Verify(h, body)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})
}

func TestNewVerifierRejectsBadSecrets(t *testing.T) {
	_, err := NewVerifier("", 0)
	assert.Error(t, err)
	_, err = NewVerifier("whsec_", 0)
	assert.Error(t, err)
	_, err = NewVerifier("whsec_%%%", 0)
	assert.Error(t, err)
}

func TestMemoryDeduper(t *testing.T) {
	d := NewMemoryDeduper()
	now := time.Unix(1_767_000_000, 0)
	d.now = func() time.Time { return now }
	ctx := t.Context()

	fresh, err := d.Claim(ctx, "msg_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, _ = d.Claim(ctx, "msg_1", time.Minute)
	assert.False(t, fresh)

	require.NoError(t, d.Release(ctx, "msg_1"))
	fresh, _ = d.Claim(ctx, "msg_1", time.Minute)
	assert.True(t, fresh)

	now = now.Add(2 * time.Minute)
	fresh, _ = d.Claim(ctx, "msg_1", time.Minute)
	assert.True(t, fresh, "claims expire")
}
