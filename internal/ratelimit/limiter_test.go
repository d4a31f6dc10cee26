package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquireRespectsTokenBucketOverWindow(t *testing.T) {
	reg := NewRegistry(Policy{RPS: 10, Burst: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	n := 0
	for time.Since(start) < 500*time.Millisecond {
		if err := reg.Acquire(ctx, "https://example.test/page"); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		n++
	}
	// over any ~0.5s window at 10rps+burst2, expect roughly <= 10*0.5+2+slack
	if n > 12 {
		t.Errorf("acquired %d tokens in 500ms window, expected <= ~12 (rps=10, burst=2)", n)
	}
}

func TestAcquireIsPerDomain(t *testing.T) {
	reg := NewRegistry(Policy{RPS: 1, Burst: 1})
	ctx := context.Background()

	if err := reg.Acquire(ctx, "https://a.test/x"); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	// a different domain must not be throttled by a's consumed token.
	done := make(chan error, 1)
	go func() { done <- reg.Acquire(ctx, "https://b.test/x") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("acquire b: %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("acquire for a different domain blocked on another domain's bucket")
	}
}

func TestAcquireCancellation(t *testing.T) {
	reg := NewRegistry(Policy{RPS: 0.01, Burst: 1})
	ctx := context.Background()
	if err := reg.Acquire(ctx, "https://c.test/x"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := reg.Acquire(cctx, "https://c.test/x"); err == nil {
		t.Error("expected context deadline to abort the wait")
	}
}

func TestBackoffModes(t *testing.T) {
	if d := Backoff(0, "none", 1); d != 0 {
		t.Errorf("none backoff should be 0, got %v", d)
	}
	if d := Backoff(2, "fixed", 3); d != 3*time.Second {
		t.Errorf("fixed backoff should ignore n, got %v", d)
	}
	d0 := Backoff(0, "exp", 1)
	d3 := Backoff(3, "exp", 1)
	if d3 <= d0 {
		t.Errorf("exp backoff should grow with attempt number: d0=%v d3=%v", d0, d3)
	}
	// upper bound sanity: base*2^n + jitter(<=base) for n=3, base=1 => <= 9s
	if d3 > 9*time.Second {
		t.Errorf("exp backoff grew unexpectedly large: %v", d3)
	}
}

func TestRetryCeilingIsMaxRetriesPlusOne(t *testing.T) {
	maxRetries := 3
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attempts++
	}
	if attempts != maxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", maxRetries+1, attempts)
	}
}
