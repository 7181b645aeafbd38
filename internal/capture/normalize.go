// Package capture turns clipboard-change signals into stored history items.
// It reads the OS clipboard, classifies the payload, fingerprints it,
// filters echoes and duplicates, and hands the survivors to storage.
package capture

import (
	"os"
	"strings"
)

// trimSet is what gets stripped from the edges of captured text: newlines,
// carriage returns, vertical tabs, and form feeds. Ordinary spaces and tabs
// stay, they are often meaningful.
const trimSet = "\n\r\v\f"

// NormalizeText removes NUL bytes anywhere in the text and trims the edges.
// Interior whitespace is preserved so multi-line snippets keep their shape.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Trim(text, trimSet)
}

// LooksLikeFilePayload reports whether every non-empty line of text reads as
// a filesystem path or file URL. Text with no non-empty lines does not
// qualify.
func LooksLikeFilePayload(text string) bool {
	saw := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		saw = true
		if !looksLikePath(line) {
			return false
		}
	}
	return saw
}

func looksLikePath(line string) bool {
	if strings.HasPrefix(line, "file://") ||
		strings.HasPrefix(line, "/") ||
		strings.HasPrefix(line, "~/") {
		return true
	}
	// Windows drive letter, e.g. C:\ or C:/.
	if len(line) > 2 && line[1] == ':' && (line[2] == '\\' || line[2] == '/') {
		return true
	}
	// Last resort: the line names something that exists.
	if _, err := os.Stat(line); err == nil {
		return true
	}
	return false
}
