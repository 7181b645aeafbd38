package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kalambet/clipd/internal/storage"
)

// openPath hands a path to the platform opener. A variable so tests can
// intercept it.
var openPath = func(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("explorer", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}

func handleOpenItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid item id")
			return
		}

		payload, err := deps.Store.GetItemPayload(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load item: %v", err)
			return
		}

		if payload.Kind != storage.KindFile {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "item is not a file item")
			return
		}
		path := firstPath(payload.Text)
		if path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "item has no path to open")
			return
		}

		if err := openPath(path); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to open %s: %v", path, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "opened"})
	}
}

// firstPath extracts the first non-empty line of a file item and normalizes
// it to something the platform opener accepts.
func firstPath(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return normalizePath(line)
		}
	}
	return ""
}

// normalizePath strips a file:// scheme and decodes the space escapes file
// managers put into copied URLs. Plain paths pass through untouched; a
// literal %20 in a local filename is not an escape.
func normalizePath(line string) string {
	if path, ok := strings.CutPrefix(line, "file://"); ok {
		return strings.ReplaceAll(path, "%20", " ")
	}
	return line
}
