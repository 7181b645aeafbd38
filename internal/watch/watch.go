// Package watch detects clipboard changes and signals the capture pipeline.
// Each platform gets the cheapest reliable detector: an event listener on
// Windows, pasteboard counter polling on macOS, blind polling elsewhere.
package watch

import "context"

// Watcher delivers clipboard-change signals until its context is cancelled.
type Watcher interface {
	Run(ctx context.Context)
}

// Signal performs a coalescing send: when a signal is already pending the
// new one merges into it, so a burst of changes wakes the consumer once.
func Signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
