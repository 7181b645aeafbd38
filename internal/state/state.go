// Package state holds the runtime state shared by the capture worker and the
// serving surfaces: the live settings snapshot, the pause flag, and a record
// of the last clipboard write the daemon itself performed.
package state

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kalambet/clipd/internal/settings"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// State is safe for concurrent use. Settings reads return copies; the pause
// flag is a lock-free atomic so the capture worker can check it on every
// signal without contention.
type State struct {
	clock Clock

	mu       sync.RWMutex
	settings settings.Settings

	paused atomic.Bool

	wmu         sync.Mutex
	lastWriteFP string
	lastWriteAt time.Time
}

// New creates runtime state seeded with the given settings. Capture starts
// paused when the capture_enabled setting is off.
func New(s settings.Settings) *State {
	return NewWithClock(s, realClock{})
}

// NewWithClock creates runtime state with a custom clock (for testing).
func NewWithClock(s settings.Settings, clock Clock) *State {
	st := &State{clock: clock, settings: s}
	st.paused.Store(!s.CaptureEnabled)
	return st
}

// Settings returns a copy of the current settings snapshot.
func (st *State) Settings() settings.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// ApplySetting applies one key/value to the live snapshot and returns the
// updated copy. The boolean reports whether the key was recognized; unknown
// keys and undecodable values leave the snapshot untouched.
func (st *State) ApplySetting(key string, value json.RawMessage) (settings.Settings, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ok := settings.Apply(&st.settings, key, value)
	return st.settings, ok
}

// PollingInterval returns the current watcher poll interval.
func (st *State) PollingInterval() time.Duration {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return time.Duration(st.settings.PollingIntervalMS) * time.Millisecond
}

// Paused reports whether capture is currently paused.
func (st *State) Paused() bool {
	return st.paused.Load()
}

// TogglePaused flips the pause flag and returns the new value.
func (st *State) TogglePaused() bool {
	for {
		old := st.paused.Load()
		if st.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// RecordWrite remembers a clipboard write performed by the daemon (a restore)
// so the watcher's echo of it can be told apart from fresh user copies.
func (st *State) RecordWrite(fingerprint string) {
	st.wmu.Lock()
	defer st.wmu.Unlock()
	st.lastWriteFP = fingerprint
	st.lastWriteAt = st.clock.Now()
}

// RecentlyWritten reports whether the daemon wrote content with this
// fingerprint within the given window.
func (st *State) RecentlyWritten(fingerprint string, window time.Duration) bool {
	st.wmu.Lock()
	defer st.wmu.Unlock()
	if st.lastWriteFP == "" || st.lastWriteFP != fingerprint {
		return false
	}
	return st.clock.Now().Sub(st.lastWriteAt) < window
}
