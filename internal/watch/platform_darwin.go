//go:build darwin

package watch

import (
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// changeCountScript reads NSPasteboard's change counter, which increments on
// every clipboard write without exposing the contents.
const changeCountScript = "ObjC.import('AppKit'); $.NSPasteboard.generalPasteboard.changeCount"

// New returns the macOS watcher: pasteboard change-count polling.
func New(signals chan<- struct{}, interval func() time.Duration) Watcher {
	return NewCounterWatcher(pasteboardChangeCount, interval, signals)
}

func pasteboardChangeCount() (int64, bool) {
	out, err := exec.Command("osascript", "-l", "JavaScript", "-e", changeCountScript).Output()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
