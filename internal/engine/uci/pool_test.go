package uci

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/xiangqi-tutor/internal/engine/uci/ucitest"
)

func newTestPool(t *testing.T, capacity int) (*Pool, *atomic.Int32) {
	t.Helper()
	var launches atomic.Int32
	p, err := NewPool(PoolConfig{
		Capacity: capacity,
		Launch: func(ctx context.Context) (*Session, error) {
			launches.Add(1)
			eng := ucitest.New(ucitest.Config{})
			return NewSessionIO(ctx, eng.Stdout(), eng.Stdin(), Options{}, nil)
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, &launches
}

func TestPool_ReusesReleasedSession(t *testing.T) {
	p, launches := newTestPool(t, 1)
	ctx := context.Background()
	s1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(s1, nil)
	s2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s1 != s2 || launches.Load() != 1 {
		t.Fatalf("expected reuse: same=%v launches=%d", s1 == s2, launches.Load())
	}
	p.Release(s2, nil)
}

func TestPool_ReleaseWithErrorRelaunches(t *testing.T) {
	p, launches := newTestPool(t, 1)
	ctx := context.Background()
	s1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(s1, errors.New("engine crashed"))
	if s1.State() != StateClosed {
		t.Fatalf("failed session not closed: %v", s1.State())
	}
	s2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s2 == s1 || launches.Load() != 2 {
		t.Fatalf("expected relaunch: launches=%d", launches.Load())
	}
	p.Release(s2, nil)
}

func TestPool_WaitsAtCapacity(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire at capacity: %v", err)
	}

	got := make(chan *Session, 1)
	go func() {
		s, err := p.Acquire(context.Background())
		if err != nil {
			got <- nil
			return
		}
		got <- s
	}()
	// dropping the only session frees its slot for the waiter
	time.Sleep(20 * time.Millisecond)
	p.Release(s1, errors.New("boom"))
	select {
	case s := <-got:
		if s == nil || s == s1 {
			t.Fatalf("waiter did not get a fresh session")
		}
		p.Release(s, nil)
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter never woke up")
	}
}

func TestPool_ClosedRejectsAcquire(t *testing.T) {
	p, _ := newTestPool(t, 1)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Acquire after close: %v", err)
	}
}

func TestNewPool_MissingBinary(t *testing.T) {
	_, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/pikafish"})
	var le *EngineLaunchError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *EngineLaunchError", err)
	}
}
