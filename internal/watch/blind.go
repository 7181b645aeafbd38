package watch

import (
	"context"
	"time"
)

// BlindWatcher signals every tick without knowing whether the clipboard
// changed. The pipeline's duplicate suppression absorbs the false wakeups.
// Used where the platform offers neither change events nor a counter.
type BlindWatcher struct {
	interval func() time.Duration
	signals  chan<- struct{}
}

// NewBlindWatcher creates a watcher that ticks at the given live interval.
func NewBlindWatcher(interval func() time.Duration, signals chan<- struct{}) *BlindWatcher {
	return &BlindWatcher{interval: interval, signals: signals}
}

// Run ticks until ctx is cancelled.
func (w *BlindWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval()):
		}
		Signal(w.signals)
	}
}
