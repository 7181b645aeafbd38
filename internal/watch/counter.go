package watch

import (
	"context"
	"time"
)

// CounterWatcher polls a cheap change counter and signals only when it
// moves. The counter read never touches clipboard contents, so polling stays
// inexpensive even with large payloads on the clipboard.
type CounterWatcher struct {
	counter  func() (int64, bool)
	interval func() time.Duration
	signals  chan<- struct{}
}

// NewCounterWatcher creates a watcher around a counter read. The interval
// function is consulted every tick, so live settings changes take effect on
// the next cycle. A counter read returning ok=false is skipped.
func NewCounterWatcher(counter func() (int64, bool), interval func() time.Duration, signals chan<- struct{}) *CounterWatcher {
	return &CounterWatcher{counter: counter, interval: interval, signals: signals}
}

// Run polls until ctx is cancelled. The starting counter value primes the
// watcher without a signal: whatever sat on the clipboard before the daemon
// came up is not captured retroactively.
func (w *CounterWatcher) Run(ctx context.Context) {
	var last int64
	primed := false
	if v, ok := w.counter(); ok {
		last = v
		primed = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval()):
		}

		v, ok := w.counter()
		if !ok {
			continue
		}
		if !primed {
			last = v
			primed = true
			continue
		}
		if v != last {
			last = v
			Signal(w.signals)
		}
	}
}
