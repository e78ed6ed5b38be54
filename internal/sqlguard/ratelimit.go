package sqlguard

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const rateWindow = time.Minute

// Limiter admits or rejects a query attempt before any validation work is
// spent on it.
type Limiter interface {
	Admit() bool
}

// SlidingWindowLimiter admits up to max attempts per trailing window. It
// counts admitted attempts only; rejected ones leave no trace, so a burst of
// rejections cannot extend the lockout.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	window time.Duration
	max    int
	stamps []time.Time
}

// NewSlidingWindowLimiter creates a limiter. A nil clock means the real one.
func NewSlidingWindowLimiter(max int, window time.Duration, clock clockwork.Clock) *SlidingWindowLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SlidingWindowLimiter{clock: clock, window: window, max: max}
}

// Admit prunes timestamps older than the window, then admits the attempt if
// a slot remains, recording it. Prune, check and record happen atomically
// under the mutex, so concurrent callers cannot overshoot the cap.
func (l *SlidingWindowLimiter) Admit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Reset clears the admission history.
func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = l.stamps[:0]
}
