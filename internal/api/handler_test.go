package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/clipd/internal/capture"
	"github.com/kalambet/clipd/internal/notify"
	"github.com/kalambet/clipd/internal/settings"
	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
)

const testToken = "test-token-1234567890"

type fakeClipboard struct {
	texts  []string
	images [][]byte
}

func (f *fakeClipboard) WriteText(text string) { f.texts = append(f.texts, text) }

func (f *fakeClipboard) WriteImage(png []byte) {
	f.images = append(f.images, append([]byte(nil), png...))
}

type testApp struct {
	handler http.Handler
	store   *storage.Store
	state   *state.State
	hub     *notify.Hub
	clip    *fakeClipboard
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	app := &testApp{
		store: store,
		state: state.New(settings.Default()),
		hub:   notify.NewHub(),
		clip:  &fakeClipboard{},
	}
	app.handler = NewHandler(AppDeps{
		Store:     app.store,
		State:     app.state,
		Hub:       app.hub,
		Clipboard: app.clip,
		Token:     testToken,
	})
	return app
}

func authReq(method, target string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+testToken)
	return r
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) insertText(t *testing.T, text string) int64 {
	t.Helper()
	id, err := a.store.InsertItem(storage.KindText, text, capture.Fingerprint(storage.KindText, text), nil)
	if err != nil {
		t.Fatalf("failed to insert item: %v", err)
	}
	return id
}

func TestHealthWithoutAuth(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want %q", resp["status"], "ok")
	}
}

func TestAuthRejectsMissingAndWrongToken(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/items", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec = app.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/items?token="+testToken, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestGetSettings(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, authReq(http.MethodGet, "/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got settings.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != settings.Default() {
		t.Errorf("settings = %+v, want defaults %+v", got, settings.Default())
	}
}

func TestPatchSettingUpdatesStateAndStore(t *testing.T) {
	app := setupApp(t)

	body := []byte(`{"key": "polling_interval_ms", "value": 1000}`)
	rec := app.do(t, authReq(http.MethodPatch, "/settings", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got settings.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.PollingIntervalMS != 1000 {
		t.Errorf("response polling_interval_ms = %d, want 1000", got.PollingIntervalMS)
	}
	if app.state.Settings().PollingIntervalMS != 1000 {
		t.Errorf("state polling_interval_ms = %d, want 1000", app.state.Settings().PollingIntervalMS)
	}

	persisted, err := app.store.LoadSettings()
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	if persisted.PollingIntervalMS != 1000 {
		t.Errorf("persisted polling_interval_ms = %d, want 1000", persisted.PollingIntervalMS)
	}
}

func TestPatchSettingClampsValue(t *testing.T) {
	app := setupApp(t)

	body := []byte(`{"key": "polling_interval_ms", "value": 1}`)
	rec := app.do(t, authReq(http.MethodPatch, "/settings", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got settings.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.PollingIntervalMS != 100 {
		t.Errorf("response polling_interval_ms = %d, want clamp to 100", got.PollingIntervalMS)
	}
}

func TestPatchSettingRejectsUnknownKeyAndMissingFields(t *testing.T) {
	app := setupApp(t)

	for name, body := range map[string]string{
		"unknown key":   `{"key": "theme", "value": "dark"}`,
		"missing key":   `{"value": 12}`,
		"missing value": `{"key": "max_items"}`,
	} {
		rec := app.do(t, authReq(http.MethodPatch, "/settings", []byte(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d; body = %s", name, rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	}
}

func TestPatchMaxItemsTrimsHistoryImmediately(t *testing.T) {
	app := setupApp(t)

	for i := 0; i < 15; i++ {
		app.insertText(t, fmt.Sprintf("item %d", i))
	}

	body := []byte(`{"key": "max_items", "value": 10}`)
	rec := app.do(t, authReq(http.MethodPatch, "/settings", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	res, err := app.store.SearchItems("", 50, 0, storage.FilterAll)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// The minimum cap is 10, so the patched value lands exactly there.
	if res.Total != 10 {
		t.Errorf("items after shrinking cap = %d, want 10", res.Total)
	}
}

func TestSearchItemsEndpoint(t *testing.T) {
	app := setupApp(t)
	app.insertText(t, "alpha release notes")
	app.insertText(t, "beta checklist")

	rec := app.do(t, authReq(http.MethodGet, "/items?q=alp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res storage.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 {
		t.Fatalf("total = %d, items = %d, want 1 and 1", res.Total, len(res.Items))
	}
	if res.Items[0].Text != "alpha release notes" {
		t.Errorf("matched text = %q, want %q", res.Items[0].Text, "alpha release notes")
	}
}

func TestSearchItemsPagination(t *testing.T) {
	app := setupApp(t)
	for i := 0; i < 5; i++ {
		app.insertText(t, fmt.Sprintf("entry %d", i))
	}

	rec := app.do(t, authReq(http.MethodGet, "/items?limit=2&offset=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res storage.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Total != 5 {
		t.Errorf("total = %d, want 5", res.Total)
	}
	if len(res.Items) != 2 {
		t.Fatalf("page size = %d, want 2", len(res.Items))
	}
	if res.Items[0].Text != "entry 3" || res.Items[1].Text != "entry 2" {
		t.Errorf("page = %q, %q; want entry 3, entry 2", res.Items[0].Text, res.Items[1].Text)
	}
}

func TestGetItemEndpoint(t *testing.T) {
	app := setupApp(t)
	id := app.insertText(t, "hello")

	rec := app.do(t, authReq(http.MethodGet, fmt.Sprintf("/items/%d", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var item storage.ItemPreview
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if item.Kind != storage.KindText || item.Text != "hello" {
		t.Errorf("item = %+v, want text item %q", item, "hello")
	}
}

func TestGetItemNotFoundAndBadID(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, authReq(http.MethodGet, "/items/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = app.do(t, authReq(http.MethodGet, "/items/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRestoreTextItem(t *testing.T) {
	app := setupApp(t)
	id := app.insertText(t, "restore me")

	rec := app.do(t, authReq(http.MethodPost, fmt.Sprintf("/items/%d/restore", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if len(app.clip.texts) != 1 || app.clip.texts[0] != "restore me" {
		t.Fatalf("clipboard writes = %q, want one write of %q", app.clip.texts, "restore me")
	}

	// The write must be marked so the capture loop ignores its own echo.
	fp := capture.Fingerprint(storage.KindText, "restore me")
	if !app.state.RecentlyWritten(fp, 2*time.Second) {
		t.Error("restored fingerprint was not recorded as a recent write")
	}
}

func TestRestoreImageItem(t *testing.T) {
	app := setupApp(t)

	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	img := &storage.Image{PNG: png, Width: 4, Height: 2}
	id, err := app.store.InsertItem(storage.KindImage, "image://4x2", capture.ImageFingerprint(4, 2, png), img)
	if err != nil {
		t.Fatalf("failed to insert image item: %v", err)
	}

	rec := app.do(t, authReq(http.MethodPost, fmt.Sprintf("/items/%d/restore", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if len(app.clip.images) != 1 || !bytes.Equal(app.clip.images[0], png) {
		t.Fatalf("clipboard image writes = %d, want the stored bytes back", len(app.clip.images))
	}
	if !app.state.RecentlyWritten(capture.ImageFingerprint(4, 2, png), 2*time.Second) {
		t.Error("restored image fingerprint was not recorded as a recent write")
	}
}

func TestRestoreEmptyTextIsNoop(t *testing.T) {
	app := setupApp(t)
	id := app.insertText(t, "\n\r\n")

	rec := app.do(t, authReq(http.MethodPost, fmt.Sprintf("/items/%d/restore", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(app.clip.texts) != 0 {
		t.Errorf("clipboard writes = %q, want none for empty text", app.clip.texts)
	}
}

func TestFavoriteAndPinnedEndpoints(t *testing.T) {
	app := setupApp(t)
	id := app.insertText(t, "keeper")

	rec := app.do(t, authReq(http.MethodPut, fmt.Sprintf("/items/%d/favorite", id), []byte(`{"value": true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("favorite: status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	rec = app.do(t, authReq(http.MethodPut, fmt.Sprintf("/items/%d/pinned", id), []byte(`{"value": true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("pinned: status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	res, err := app.store.SearchItems("", 10, 0, storage.FilterFavorites)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Total != 1 || !res.Items[0].Favorite || !res.Items[0].Pinned {
		t.Errorf("flags not applied: %+v", res.Items)
	}

	rec = app.do(t, authReq(http.MethodPut, fmt.Sprintf("/items/%d/favorite", id), []byte(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing value: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteItemEndpoint(t *testing.T) {
	app := setupApp(t)
	id := app.insertText(t, "doomed")

	rec := app.do(t, authReq(http.MethodDelete, fmt.Sprintf("/items/%d", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = app.do(t, authReq(http.MethodGet, fmt.Sprintf("/items/%d", id), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted item still visible: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestClearHistorySparesPinnedAndFavorite(t *testing.T) {
	app := setupApp(t)
	app.insertText(t, "plain")
	pinned := app.insertText(t, "pinned")
	fav := app.insertText(t, "favorite")
	if err := app.store.SetPinned(pinned, true); err != nil {
		t.Fatalf("failed to pin: %v", err)
	}
	if err := app.store.SetFavorite(fav, true); err != nil {
		t.Fatalf("failed to favorite: %v", err)
	}

	rec := app.do(t, authReq(http.MethodPost, "/history/clear", []byte(`{}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	res, err := app.store.SearchItems("", 10, 0, storage.FilterAll)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("items after clear = %d, want pinned and favorite to survive", res.Total)
	}

	rec = app.do(t, authReq(http.MethodPost, "/history/clear", []byte(`{"all": true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear all: status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	res, err = app.store.SearchItems("", 10, 0, storage.FilterAll)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("items after clear all = %d, want 0", res.Total)
	}
}

func TestTogglePauseEndpointPublishesEvent(t *testing.T) {
	app := setupApp(t)
	sub := app.hub.Subscribe()
	defer app.hub.Unsubscribe(sub)

	rec := app.do(t, authReq(http.MethodPost, "/capture/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["paused"] {
		t.Error("response paused = false, want true")
	}
	if !app.state.Paused() {
		t.Error("state is not paused after toggle")
	}

	select {
	case ev := <-sub:
		if ev.Name != notify.EventPausedChanged {
			t.Errorf("event name = %q, want %q", ev.Name, notify.EventPausedChanged)
		}
		payload, ok := ev.Payload.(notify.PausedChanged)
		if !ok || !payload.Paused {
			t.Errorf("event payload = %+v, want paused true", ev.Payload)
		}
	default:
		t.Fatal("no event published for pause toggle")
	}

	rec = app.do(t, authReq(http.MethodPost, "/capture/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if app.state.Paused() {
		t.Error("state still paused after second toggle")
	}
}

func TestErrorBodyShape(t *testing.T) {
	app := setupApp(t)

	rec := app.do(t, authReq(http.MethodGet, "/items/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Error.Type != "not_found" || !strings.Contains(resp.Error.Message, "item") {
		t.Errorf("error = %+v, want not_found about the item", resp.Error)
	}
}
