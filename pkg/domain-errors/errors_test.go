package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeForbidden, "admin role required")
		assert.True(t, HasCode(err, CodeForbidden))
		assert.False(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches wrapped code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "organization not found")
		err := fmt.Errorf("suspend: %w", inner)
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches nested coded cause", func(t *testing.T) {
		inner := New(CodeConflict, "already suspended")
		err := Wrap(inner, CodeInternal, "transaction failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestErrorsIsComparesCode(t *testing.T) {
	err := Wrap(errors.New("connection reset"), CodeInternal, "failed to record audit entry")
	require.ErrorIs(t, err, New(CodeInternal, "different message"))
	assert.NotErrorIs(t, err, New(CodeNotFound, ""))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNoActiveOrganization, CodeOf(New(CodeNoActiveOrganization, "no org")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("db down")))
	assert.Equal(t, "no org", MessageOf(New(CodeNoActiveOrganization, "no org")))
}
