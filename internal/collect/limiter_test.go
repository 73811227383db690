package collect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterCooldown(t *testing.T) {
	t.Parallel()

	l := NewLimiter(30 * time.Second)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.CheckAndRecord(1, t0).Allowed)

	d := l.CheckAndRecord(1, t0.Add(10*time.Second))
	assert.False(t, d.Allowed)
	assert.InDelta(t, float64(20*time.Second), float64(d.Remaining), float64(time.Millisecond))
	assert.Equal(t, 20, d.RemainingSeconds())

	// A denial does not push the window further out.
	d = l.CheckAndRecord(1, t0.Add(29500*time.Millisecond))
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RemainingSeconds())

	assert.True(t, l.CheckAndRecord(1, t0.Add(30*time.Second+time.Millisecond)).Allowed)
	assert.False(t, l.CheckAndRecord(1, t0.Add(31*time.Second)).Allowed)
}

func TestLimiterUsersAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewLimiter(30 * time.Second)
	now := time.Now()

	assert.True(t, l.CheckAndRecord(1, now).Allowed)
	assert.True(t, l.CheckAndRecord(2, now).Allowed)
	assert.False(t, l.CheckAndRecord(1, now).Allowed)
}

func TestLimiterCheckDoesNotRecord(t *testing.T) {
	t.Parallel()

	l := NewLimiter(time.Minute)
	now := time.Now()

	assert.True(t, l.Check(7, now).Allowed)
	assert.True(t, l.Check(7, now).Allowed)
	assert.Zero(t, l.Len())

	l.Record(7, now)
	assert.False(t, l.Check(7, now.Add(time.Second)).Allowed)
}

func TestLimiterZeroCooldownAllowsEverything(t *testing.T) {
	t.Parallel()

	l := NewLimiter(0)
	now := time.Now()
	for i := 0; i < 5; i++ {
		assert.True(t, l.CheckAndRecord(1, now).Allowed)
	}
}

func TestLimiterPruneAndReset(t *testing.T) {
	t.Parallel()

	l := NewLimiter(30 * time.Second)
	t0 := time.Now()
	l.Record(1, t0)
	l.Record(2, t0.Add(20*time.Second))

	assert.Equal(t, 1, l.Prune(t0.Add(35*time.Second)))
	assert.Equal(t, 1, l.Len())

	l.Reset()
	assert.Zero(t, l.Len())
	assert.True(t, l.Check(2, t0.Add(21*time.Second)).Allowed)
}
