//go:build windows

package watch

import "time"

// New returns the Windows watcher: a clipboard format listener window. The
// interval is unused, Windows delivers change events.
func New(signals chan<- struct{}, interval func() time.Duration) Watcher {
	return newMessageWatcher(signals)
}
