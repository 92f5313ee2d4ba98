// Package webhook receives signed identity-provider events and applies them
// to users, organizations and memberships.
package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders   = errors.New("webhook: missing signature headers")
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	ErrTimestampSkew    = errors.New("webhook: timestamp outside tolerance")
	ErrNoMatch          = errors.New("webhook: no matching signature")
)

// Verifier checks the provider's signed-payload headers through the svix
// library. The timestamp window is checked here so it follows the configured
// tolerance and clock; svix checks the signatures.
type Verifier struct {
	hook      *svix.Webhook
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier accepts the secret with or without its whsec_ prefix.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if strings.TrimPrefix(secret, "whsec_") == "" {
		return nil, errors.New("webhook: signing secret is required")
	}
	hook, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook: decode signing secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{hook: hook, tolerance: tolerance, now: time.Now}, nil
}

// Verify returns the message id when body carries a valid signature.
func (v *Verifier) Verify(h http.Header, body []byte) (string, error) {
	id := h.Get(headerID)
	ts := h.Get(headerTimestamp)
	if id == "" || ts == "" || h.Get(headerSignature) == "" {
		return "", ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalidTimestamp
	}
	skew := v.now().Sub(time.Unix(sec, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return "", ErrTimestampSkew
	}

	if err := v.hook.VerifyIgnoringTimestamp(body, h); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	return id, nil
}

// Sign returns the svix-signature header value for a message.
func (v *Verifier) Sign(id string, timestamp time.Time, body []byte) (string, error) {
	return v.hook.Sign(id, timestamp, body)
}
