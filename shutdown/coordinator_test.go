package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vinayprograms/toolhost/errors"
)

func TestShutdownRunsHandlersOnce(t *testing.T) {
	c := NewCoordinator(Config{}, nil)

	var calls int32
	c.RegisterFunc("counter", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown should return first result, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("handler ran %d times, expected 1", n)
	}

	select {
	case <-c.Done():
	default:
		t.Error("Done should be closed after shutdown")
	}
}

func TestShutdownPhaseOrdering(t *testing.T) {
	c := NewCoordinator(Config{}, nil)

	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	// Registration order is reverse of phase order on purpose.
	c.RegisterFuncPhase("connections", record("connections"), PhaseConnections)
	c.RegisterFuncPhase("caches", record("caches"), PhaseCaches)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if len(order) != 2 || order[0] != "caches" || order[1] != "connections" {
		t.Errorf("expected caches before connections, got %v", order)
	}
}

func TestShutdownContinuesOnError(t *testing.T) {
	c := NewCoordinator(Config{}, nil)

	var ran bool
	c.RegisterFuncPhase("bad", func(ctx context.Context) error {
		return errors.Internal("boom")
	}, PhaseCaches)
	c.RegisterFuncPhase("good", func(ctx context.Context) error {
		ran = true
		return nil
	}, PhaseConnections)

	err := c.Shutdown(context.Background())
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Fatalf("expected handler failure error, got %v", err)
	}
	if !ran {
		t.Error("later phase should still run after a failure")
	}

	r := c.Result()
	if r == nil {
		t.Fatal("Result should be available after shutdown")
	}
	failed := r.FailedHandlers()
	if len(failed) != 1 || failed[0] != "bad" {
		t.Errorf("expected failed handler 'bad', got %v", failed)
	}
}

func TestShutdownStopsOnErrorWhenConfigured(t *testing.T) {
	c := NewCoordinator(Config{StopOnError: true}, nil)

	var ran bool
	c.RegisterFuncPhase("bad", func(ctx context.Context) error {
		return errors.Internal("boom")
	}, PhaseCaches)
	c.RegisterFuncPhase("good", func(ctx context.Context) error {
		ran = true
		return nil
	}, PhaseConnections)

	if err := c.Shutdown(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if ran {
		t.Error("later phase must not run when ContinueOnError is false")
	}
}

func TestShutdownGraceExceeded(t *testing.T) {
	c := NewCoordinator(Config{}, nil)

	c.RegisterFuncPhase("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, PhaseCaches)
	c.RegisterFuncPhase("never", func(ctx context.Context) error {
		t.Error("phase after deadline must not run")
		return nil
	}, PhaseConnections)

	err := c.ShutdownWithTimeout(50 * time.Millisecond)
	if err == nil {
		t.Fatal("expected an error after the grace period")
	}
}

func TestTriggerRunsShutdown(t *testing.T) {
	c := NewCoordinator(Config{GraceTimeout: time.Second}, nil)

	done := make(chan struct{})
	c.RegisterFunc("marker", func(ctx context.Context) error {
		close(done)
		return nil
	})

	c.HandleSignals()
	c.Trigger()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not run shutdown")
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after triggered shutdown")
	}
	if err := c.Err(); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestConcurrentHandlersWithinPhase(t *testing.T) {
	c := NewCoordinator(Config{}, nil)

	var active, peak int32
	handler := func(ctx context.Context) error {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	}
	c.RegisterFuncPhase("a", handler, PhaseConnections)
	c.RegisterFuncPhase("b", handler, PhaseConnections)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if atomic.LoadInt32(&peak) < 2 {
		t.Error("handlers in the same phase should overlap")
	}
}
