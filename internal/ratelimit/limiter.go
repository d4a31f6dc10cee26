// Package ratelimit provides the per-domain token bucket and the retry
// backoff machine shared by every fetch engine. Rate limiter state is
// scoped to a Registry instance owned by one source's run; it is never a
// package-level singleton, so two sources (or two runs) never contend on
// the same bucket by accident.
package ratelimit

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy is the rate-limit policy for one source, taken directly from its
// EngineConfig fields.
type Policy struct {
	RPS       float64
	Burst     int
	MinDelayS float64
	JitterS   float64
}

// Registry holds one token bucket per domain, shared across all workers
// fetching that domain within one source's run.
type Registry struct {
	policy Policy
	mu     sync.Mutex
	limiters map[string]*rate.Limiter
	rnd      *rand.Rand
	rndMu    sync.Mutex
}

// NewRegistry creates a Registry for the given policy. A zero RPS means
// unlimited throughput (no token bucket wait), matching spec.md's
// "rps >= 0" invariant where 0 is a legal, if unusual, configuration.
func NewRegistry(policy Policy) *Registry {
	if policy.Burst <= 0 {
		policy.Burst = 1
	}
	return &Registry{
		policy:   policy,
		limiters: make(map[string]*rate.Limiter),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func (r *Registry) limiterFor(domain string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[domain]; ok {
		return l
	}

	var limit rate.Limit
	if r.policy.RPS <= 0 {
		limit = rate.Inf
	} else {
		limit = rate.Limit(r.policy.RPS)
	}
	l := rate.NewLimiter(limit, r.policy.Burst)
	r.limiters[domain] = l
	return l
}

// Acquire blocks until a token is available for targetURL's domain, then
// inserts the jittered min-delay before returning. Cancellation of ctx
// (run-wide deadline or explicit cancel) aborts the wait cleanly.
func (r *Registry) Acquire(ctx context.Context, targetURL string) error {
	l := r.limiterFor(domainOf(targetURL))
	if err := l.Wait(ctx); err != nil {
		return err
	}

	delay := r.jitteredDelay()
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitteredDelay computes max(min_delay_s, uniform(0, jitter_s)).
func (r *Registry) jitteredDelay() time.Duration {
	min := r.policy.MinDelayS
	jitter := r.policy.JitterS

	r.rndMu.Lock()
	var u float64
	if jitter > 0 {
		u = r.rnd.Float64() * jitter
	}
	r.rndMu.Unlock()

	d := min
	if u > d {
		d = u
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(d * float64(time.Second))
}
