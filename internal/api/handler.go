// Package api is the daemon's serving surface: the HTTP contract UI clients
// and the CLI speak, plus the MCP tool server. It owns no clipboard logic of
// its own; everything routes into storage, state, and the capture helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/clipd/internal/capture"
	"github.com/kalambet/clipd/internal/notify"
	"github.com/kalambet/clipd/internal/settings"
	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
)

const defaultSearchLimit = 50

// ClipboardWriter writes restored payloads to the OS clipboard. Implemented
// by clipboard.System.
type ClipboardWriter interface {
	WriteText(text string)
	WriteImage(data []byte)
}

// AppDeps holds the dependencies of the HTTP surface.
type AppDeps struct {
	Store     *storage.Store
	State     *state.State
	Hub       *notify.Hub
	Clipboard ClipboardWriter
	Token     string
}

// NewHandler builds the daemon's HTTP handler. Everything except /health
// requires the bearer token.
func NewHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/settings", handleGetSettings(deps))
		r.Patch("/settings", handlePatchSetting(deps))

		r.Get("/items", handleSearchItems(deps))
		r.Get("/items/{id}", handleGetItem(deps))
		r.Post("/items/{id}/restore", handleRestoreItem(deps))
		r.Post("/items/{id}/open", handleOpenItem(deps))
		r.Put("/items/{id}/favorite", handleSetFavorite(deps))
		r.Put("/items/{id}/pinned", handleSetPinned(deps))
		r.Delete("/items/{id}", handleDeleteItem(deps))

		r.Post("/history/clear", handleClearHistory(deps))
		r.Post("/capture/pause", handleTogglePause(deps))

		r.Get("/events", handleEvents(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGetSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.State.Settings())
	}
}

type patchSettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func handlePatchSetting(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req patchSettingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Key == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "key is required")
			return
		}
		if len(req.Value) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "value is required")
			return
		}

		updated, ok := deps.State.ApplySetting(req.Key, req.Value)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown setting key %q", req.Key)
			return
		}

		if err := deps.Store.UpsertSetting(req.Key, req.Value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist setting: %v", err)
			return
		}

		// Shrinking the cap takes effect immediately, not on the next
		// capture.
		if req.Key == settings.KeyMaxItems {
			if err := deps.Store.EnforceMaxItems(updated.MaxItems); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to apply retention: %v", err)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func handleSearchItems(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit := parseIntParam(r, "limit", defaultSearchLimit)
		offset := parseIntParam(r, "offset", 0)
		filter := r.URL.Query().Get("filter")
		if filter == "" {
			filter = storage.FilterAll
		}

		res, err := deps.Store.SearchItems(query, limit, offset, filter)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

func itemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func handleGetItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid item id")
			return
		}

		preview, err := deps.Store.GetItemPreview(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(preview)
	}
}

func handleRestoreItem(deps AppDeps) http.HandlerFunc {
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

		if err := writeBack(deps.Clipboard, deps.State, payload); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "restore failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "restored"})
	}
}

// writeBack puts a stored payload on the OS clipboard. The write is recorded
// first so the watcher's echo of it is suppressed. Text payloads that
// normalize to nothing are a no-op.
func writeBack(clip ClipboardWriter, st *state.State, payload storage.ItemPayload) error {
	switch payload.Kind {
	case storage.KindImage:
		if len(payload.ImagePNG) == 0 {
			return errors.New("image payload is missing its bytes")
		}
		st.RecordWrite(capture.ImageFingerprint(payload.ImageWidth, payload.ImageHeight, payload.ImagePNG))
		clip.WriteImage(payload.ImagePNG)
	default:
		normalized := capture.NormalizeText(payload.Text)
		if normalized == "" {
			return nil
		}
		// The fingerprint must match what capture computes when the
		// watcher reads this write back.
		st.RecordWrite(capture.Fingerprint(payload.Kind, normalized))
		clip.WriteText(payload.Text)
	}
	return nil
}

type flagRequest struct {
	Value *bool `json:"value"`
}

func decodeFlag(w http.ResponseWriter, r *http.Request) (bool, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false, false
	}
	if req.Value == nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "value is required")
		return false, false
	}
	return *req.Value, true
}

func handleSetFavorite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid item id")
			return
		}
		value, ok := decodeFlag(w, r)
		if !ok {
			return
		}

		if err := deps.Store.SetFavorite(id, value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update favorite: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	}
}

func handleSetPinned(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid item id")
			return
		}
		value, ok := decodeFlag(w, r)
		if !ok {
			return
		}

		if err := deps.Store.SetPinned(id, value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update pinned: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	}
}

func handleDeleteItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid item id")
			return
		}

		if err := deps.Store.DeleteItem(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete item: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

type clearRequest struct {
	All bool `json:"all"`
}

func handleClearHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// The body is optional; an absent one means the default clear.
		var req clearRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var err error
		if req.All {
			err = deps.Store.ClearAllHistory()
		} else {
			err = deps.Store.ClearHistory()
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear history: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	}
}

func handleTogglePause(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paused := deps.State.TogglePaused()
		deps.Hub.Publish(notify.Event{
			Name:    notify.EventPausedChanged,
			Payload: notify.PausedChanged{Paused: paused},
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"paused": paused})
	}
}
