package collect

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingSeconds rounds Remaining up to whole seconds, at least 1 when
// denied.
func (d Decision) RemainingSeconds() int {
	if d.Allowed {
		return 0
	}
	return max(1, int(math.Ceil(d.Remaining.Seconds())))
}

// Limiter enforces a cooldown between accepted submissions of the same
// user. Each user gets a token bucket of size one refilled once per
// cooldown window.
type Limiter struct {
	cooldown time.Duration

	mu    sync.Mutex
	users map[int64]*rate.Limiter
}

// NewLimiter creates a Limiter. A zero cooldown allows everything.
func NewLimiter(cooldown time.Duration) *Limiter {
	return &Limiter{
		cooldown: cooldown,
		users:    make(map[int64]*rate.Limiter),
	}
}

// Check reports whether userID may submit at now without recording.
func (l *Limiter) Check(userID int64, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(userID, now)
}

// Record marks an accepted submission of userID at now.
func (l *Limiter) Record(userID int64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter(userID).AllowN(now, 1)
}

// CheckAndRecord checks and, only when allowed, records in one step.
func (l *Limiter) CheckAndRecord(userID int64, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.check(userID, now)
	if d.Allowed {
		l.limiter(userID).AllowN(now, 1)
	}
	return d
}

func (l *Limiter) check(userID int64, now time.Time) Decision {
	if l.cooldown <= 0 {
		return Decision{Allowed: true}
	}
	lim, ok := l.users[userID]
	if !ok {
		return Decision{Allowed: true}
	}

	tokens := lim.TokensAt(now)
	if tokens >= 1 {
		return Decision{Allowed: true}
	}
	remaining := time.Duration((1 - tokens) * float64(l.cooldown))
	return Decision{Remaining: remaining}
}

func (l *Limiter) limiter(userID int64) *rate.Limiter {
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.cooldown), 1)
		l.users[userID] = lim
	}
	return lim
}

// Prune drops users whose cooldown has fully elapsed at now.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, lim := range l.users {
		if lim.TokensAt(now) >= 1 {
			delete(l.users, id)
			removed++
		}
	}
	return removed
}

// Reset forgets every user.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.users)
}

// Len returns the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
