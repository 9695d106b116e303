package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateStartsClosed(t *testing.T) {
	g := NewGate()
	if g.Ready() {
		t.Fatal("new gate should not be ready")
	}
	select {
	case <-g.Done():
		t.Fatal("Done() closed before Open")
	default:
	}
}

func TestGateOpenReleasesWaiters(t *testing.T) {
	g := NewGate()

	const waiters = 5
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() { errs <- g.Wait(context.Background()) }()
	}

	time.Sleep(10 * time.Millisecond)
	g.Open()
	g.Open() // second Open is a no-op

	for i := 0; i < waiters; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter not released by Open")
		}
	}
	if !g.Ready() {
		t.Error("Ready() = false after Open")
	}
}

func TestGateWaitAfterOpenReturnsImmediately(t *testing.T) {
	g := NewGate()
	g.Open()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err != nil {
		t.Errorf("Wait() on open gate error = %v", err)
	}
}

func TestGateWaitHonoursContext(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}
