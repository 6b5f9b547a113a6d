// Package ratelimit bounds the outbound request rate to the extraction
// service with a sliding time window over past request timestamps.
package ratelimit

import (
	"context"
	"time"
)

// DefaultPerMinute is the request cap applied when none is configured.
const DefaultPerMinute = 200

// Limiter admits at most max requests per window. It keeps a time-ordered
// queue of past request timestamps; Admit evicts expired entries, sleeps
// while the queue is full, and records the new request. Not safe for
// concurrent use: the pipeline issues requests strictly sequentially, and
// Admit is its only suspension point.
type Limiter struct {
	max    int
	window time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter allowing maxPerMinute requests per 60-second
// window. A non-positive cap falls back to DefaultPerMinute.
func New(maxPerMinute int) *Limiter {
	if maxPerMinute <= 0 {
		maxPerMinute = DefaultPerMinute
	}
	return &Limiter{
		max:    maxPerMinute,
		window: time.Minute,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Admit blocks until one more request can be issued without exceeding the
// configured cap, then records it. Returns the context error if the wait is
// cancelled; the request is not recorded in that case.
func (l *Limiter) Admit(ctx context.Context) error {
	now := l.now()
	l.evict(now)

	if len(l.stamps) >= l.max {
		wait := l.window - now.Sub(l.stamps[0])
		if wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
			now = l.now()
		}
		l.evict(now)
	}

	l.stamps = append(l.stamps, now)
	return nil
}

// evict drops timestamps that have aged out of the window from the front
// of the queue.
func (l *Limiter) evict(now time.Time) {
	i := 0
	for i < len(l.stamps) && now.Sub(l.stamps[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
