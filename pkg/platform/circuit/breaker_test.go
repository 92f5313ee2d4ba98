package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := New("kafka", opts...)
	b.now = clock.now
	return b, clock
}

func TestNewBreakerIsClosed(t *testing.T) {
	b, _ := newBreaker()
	assert.Equal(t, "kafka", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestFailureRunOpensCircuit(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(3))

	for i := range 2 {
		fallback, change := b.RecordFailure()
		assert.False(t, fallback, "failure %d", i+1)
		assert.False(t, change.Opened)
	}
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	_, change = b.RecordFailure()
	assert.False(t, change.Opened, "already open")
}

func TestSuccessInterruptsFailureRun(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
}

func TestProbesWhileOpen(t *testing.T) {
	b, clock := newBreaker(WithFailureThreshold(1), WithCooldown(10*time.Second))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	assert.False(t, b.Allow(), "inside cooldown")
	clock.advance(10 * time.Second)
	assert.True(t, b.Allow(), "probe due")
	assert.False(t, b.Allow(), "one probe per cooldown")

	b.RecordFailure()
	clock.advance(5 * time.Second)
	assert.False(t, b.Allow(), "failed probe restarts cooldown")
	clock.advance(5 * time.Second)
	assert.True(t, b.Allow())
}

func TestSuccessRunClosesCircuit(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	b.RecordFailure()
	primary, _ = b.RecordSuccess()
	assert.False(t, primary, "failure resets the success run")

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestReset(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}

func TestOptionsIgnoreNonPositive(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 1, b.successThreshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
