//go:build !darwin && !windows

package watch

import "time"

// New returns the fallback watcher: blind polling. The pipeline's duplicate
// suppression turns the extra wakeups into no-ops.
func New(signals chan<- struct{}, interval func() time.Duration) Watcher {
	return NewBlindWatcher(interval, signals)
}
