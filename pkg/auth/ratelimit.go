package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether an identity may start another question.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// idleAfter is how long an unused bucket is kept.
const idleAfter = 10 * time.Minute

// InProcessLimiter keeps one token bucket per subject and tier. A tier of
// N requests per minute refills at N/60 per second with a burst of N.
type InProcessLimiter struct {
	tiers      map[string]int
	defaultRPM int

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInProcessLimiter creates a limiter from requests per minute per tier.
// Tiers not listed use defaultRPM; zero or negative means unlimited.
func NewInProcessLimiter(tiers map[string]int, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}
}

// NewLimiterFromConfig builds a limiter from the rate_limits config map,
// where the "default" entry applies to unlisted tiers. It returns nil when
// no tier is limited.
func NewLimiterFromConfig(limits map[string]int) RateLimiter {
	limited := false
	for _, rpm := range limits {
		if rpm > 0 {
			limited = true
		}
	}
	if !limited {
		return nil
	}
	return NewInProcessLimiter(limits, limits[DefaultTier])
}

// Allow takes a token from the identity's bucket.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.TierOrDefault()
	rpm, ok := l.tiers[tier]
	if !ok {
		rpm = l.defaultRPM
	}
	if rpm <= 0 {
		return nil
	}

	key := identity.Subject + ":" + tier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleAfter {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if !b.limiter.AllowN(now, 1) {
		return ErrTooManyRequests
	}
	return nil
}
