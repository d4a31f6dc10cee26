package engine

import (
	"context"
	"testing"
	"time"
)

func TestContextPoolBoundsConcurrentAcquires(t *testing.T) {
	p := NewContextPool(2)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- p.Acquire(ctx)
	}()

	select {
	case <-blocked:
		t.Fatal("third Acquire should block while the pool is full")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release()

	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("Acquire after Release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestContextPoolAcquireRespectsContextCancellation(t *testing.T) {
	p := NewContextPool(1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Acquire(ctx); err == nil {
		t.Error("expected Acquire to fail once ctx deadline passes")
	}
}

func TestNewContextPoolDefaultsNonPositiveToFour(t *testing.T) {
	p := NewContextPool(0)
	if cap(p.sem) != 4 {
		t.Errorf("default pool capacity = %d, want 4", cap(p.sem))
	}
}
