package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Feedback is implemented by limiters that adjust their pace from fetch
// outcomes.
type Feedback interface {
	RecordSuccess()
	RecordError()
}

// SimpleRateLimiter spaces navigations by a random delay between floor and
// ceiling.
type SimpleRateLimiter struct {
	mu      sync.Mutex
	floor   time.Duration
	ceiling time.Duration
	last    time.Time
}

func NewSimpleRateLimiter(floor, ceiling time.Duration) *SimpleRateLimiter {
	l := &SimpleRateLimiter{}
	l.setBounds(floor, ceiling)
	return l
}

// Wait blocks until at least one delay has passed since the previous
// action. Callers are served one at a time.
func (l *SimpleRateLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if remaining := l.calculateDelay() - time.Since(l.last); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.last = time.Now()
	return nil
}

// Delays returns the current bounds.
func (l *SimpleRateLimiter) Delays() (floor, ceiling time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.floor, l.ceiling
}

// setBounds raises an inverted ceiling to the floor.
func (l *SimpleRateLimiter) setBounds(floor, ceiling time.Duration) {
	l.floor = floor
	l.ceiling = max(floor, ceiling)
}

func (l *SimpleRateLimiter) calculateDelay() time.Duration {
	if spread := l.ceiling - l.floor; spread > 0 {
		return l.floor + rand.N(spread)
	}
	return l.floor
}

const (
	backoffAfter  = 3
	recoverAfter  = 5
	backoffFactor = 1.5
	recoverFactor = 0.9
	floorCap      = 60 * time.Second
	ceilingCap    = 120 * time.Second
)

// AdaptiveRateLimiter slows down after repeated failures and recovers
// toward its starting pace after a run of successes.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	baseFloor   time.Duration
	baseCeiling time.Duration
	failures    int
	successes   int
}

func NewAdaptiveRateLimiter(floor, ceiling time.Duration) *AdaptiveRateLimiter {
	simple := NewSimpleRateLimiter(floor, ceiling)
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: simple,
		baseFloor:         simple.floor,
		baseCeiling:       simple.ceiling,
	}
}

// RecordSuccess speeds up by 10% after more than recoverAfter consecutive
// successes, never past the starting pace.
func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures = 0
	if a.successes++; a.successes <= recoverAfter {
		return
	}
	a.successes = 0
	a.floor = max(scale(a.floor, recoverFactor), a.baseFloor)
	a.ceiling = max(scale(a.ceiling, recoverFactor), a.baseCeiling)
}

// RecordError slows down by half after backoffAfter consecutive errors.
func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successes = 0
	if a.failures++; a.failures < backoffAfter {
		return
	}
	a.failures = 0
	a.floor = min(scale(a.floor, backoffFactor), floorCap)
	a.ceiling = min(scale(a.ceiling, backoffFactor), ceilingCap)
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// TokenBucketRateLimiter allows short bursts of navigations and then
// settles at one per interval.
type TokenBucketRateLimiter struct {
	limiter *rate.Limiter
}

func NewTokenBucketRateLimiter(maxTokens int, refillRate time.Duration) *TokenBucketRateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return &TokenBucketRateLimiter{
		limiter: rate.NewLimiter(rate.Every(refillRate), maxTokens),
	}
}

func (t *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Chain waits on every limiter in order.
type Chain []RateLimiter

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) RecordSuccess() {
	for _, l := range c {
		if f, ok := l.(Feedback); ok {
			f.RecordSuccess()
		}
	}
}

func (c Chain) RecordError() {
	for _, l := range c {
		if f, ok := l.(Feedback); ok {
			f.RecordError()
		}
	}
}
