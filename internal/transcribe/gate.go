package transcribe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a one-shot readiness signal. It opens at most once and never
// closes again.
type Gate struct {
	once  sync.Once
	ready atomic.Bool
	done  chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Open marks the model ready and releases all waiters. Extra calls are
// no-ops.
func (g *Gate) Open() {
	g.once.Do(func() {
		g.ready.Store(true)
		close(g.done)
	})
}

// Ready reports whether Open has been called.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// Done returns a channel closed when the gate opens.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the gate opens or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g.Ready() {
		return nil
	}
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
