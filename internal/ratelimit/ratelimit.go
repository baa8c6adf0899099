// Package ratelimit paces outbound requests against the upstream rate limit.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter blocks until the next request may be issued.
type Limiter interface {
	Wait()
}

// Interval enforces a minimum gap between successive calls. The first call
// never blocks. Safe for concurrent use, though the monitoring pass is
// sequential today.
type Interval struct {
	gap time.Duration

	mu    sync.Mutex
	last  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

// NewInterval returns a limiter with the given minimum gap. A non-positive
// gap disables pacing.
func NewInterval(gap time.Duration) *Interval {
	return &Interval{
		gap:   gap,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

func (l *Interval) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gap > 0 && !l.last.IsZero() {
		if wait := l.gap - l.now().Sub(l.last); wait > 0 {
			l.sleep(wait)
		}
	}
	l.last = l.now()
}
