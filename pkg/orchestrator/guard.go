package orchestrator

import (
	"sync"
	"sync/atomic"
)

// SyncGuard lets at most one catalog sync operation run at a time.
// Acquisition never blocks: a second caller is turned away.
type SyncGuard struct {
	running atomic.Bool
}

// TryAcquire takes the guard if it is free. The returned release func is
// safe to call more than once and should be deferred by the holder.
func (g *SyncGuard) TryAcquire() (release func(), ok bool) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.running.Store(false) })
	}, true
}

// Busy reports whether a holder currently owns the guard.
func (g *SyncGuard) Busy() bool {
	return g.running.Load()
}
