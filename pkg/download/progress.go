package download

import "sync"

// Aggregator sums the bytes received by all concurrent file downloads of one
// batch and forwards the running total to a ProgressObserver.
//
// Add and the observer call happen under one lock, so the observer always
// sees a non-decreasing sequence no matter how file goroutines interleave.
type Aggregator struct {
	mu       sync.Mutex
	received uint64
	total    uint64
	observer ProgressObserver
}

// NewAggregator creates an aggregator for a batch expected to transfer total bytes.
func NewAggregator(total uint64, observer ProgressObserver) *Aggregator {
	return &Aggregator{total: total, observer: observer}
}

// Start reports the initial (0, total) state.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notify()
}

// Add records delta freshly written bytes and returns the new cumulative total.
func (a *Aggregator) Add(delta uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received += delta
	a.notify()
	return a.received
}

// Received returns the cumulative number of bytes recorded so far.
func (a *Aggregator) Received() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.received
}

// Total returns the expected size of the batch.
func (a *Aggregator) Total() uint64 {
	return a.total
}

func (a *Aggregator) notify() {
	if a.observer != nil {
		a.observer(a.received, a.total)
	}
}
