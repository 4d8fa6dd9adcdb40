// Package ratelimit provides a per-key token bucket limiter with idle-key eviction.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes a KeyedRateLimiter.
type Config struct {
	RPS           float64       // sustained requests per second per key
	Burst         int           // tokens available immediately
	MaxEntries    int           // sweep early once this many keys are tracked (0 = no cap)
	SweepInterval time.Duration // how often idle keys are evicted
	IdleTTL       time.Duration // a key unused for this long is evicted
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter.
type KeyedRateLimiter struct {
	cfg Config

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time

	now func() time.Time
}

// New creates a keyed limiter. Zero values fall back to sane defaults.
func New(cfg Config) *KeyedRateLimiter {
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &KeyedRateLimiter{
		cfg:       cfg,
		entries:   make(map[string]*entry, 1024),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow consumes one token for key if available. When denied, RetryAfter
// says when the next token will be there.
func (k *KeyedRateLimiter) Allow(key string) Decision {
	now := k.now()
	lim := k.limiterFor(key, now)

	d := Decision{Limit: k.cfg.Burst}
	res := lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		d.RetryAfter = delay
		return d
	}

	d.Allowed = true
	d.Remaining = int(math.Max(0, math.Floor(lim.TokensAt(now))))
	return d
}

// Len returns how many keys are tracked.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KeyedRateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.lastSweep) >= k.cfg.SweepInterval ||
		(k.cfg.MaxEntries > 0 && len(k.entries) >= k.cfg.MaxEntries) {
		k.sweepLocked(now)
	}

	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(k.cfg.RPS), k.cfg.Burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (k *KeyedRateLimiter) sweepLocked(now time.Time) {
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > k.cfg.IdleTTL {
			delete(k.entries, key)
		}
	}
	k.lastSweep = now
}
