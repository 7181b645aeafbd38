package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/clipd/internal/capture"
	"github.com/kalambet/clipd/internal/settings"
	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
)

// --- helpers ---

type mcpTestEnv struct {
	deps  MCPDeps
	store *storage.Store
	state *state.State
	clip  *fakeClipboard
}

func newTestMCPDeps(t *testing.T) *mcpTestEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &mcpTestEnv{
		store: store,
		state: state.New(settings.Default()),
		clip:  &fakeClipboard{},
	}
	env.deps = MCPDeps{
		Store:     env.store,
		State:     env.state,
		Clipboard: env.clip,
	}
	return env
}

func (e *mcpTestEnv) insertText(t *testing.T, text string) int64 {
	t.Helper()
	id, err := e.store.InsertItem(storage.KindText, text, capture.Fingerprint(storage.KindText, text), nil)
	if err != nil {
		t.Fatalf("inserting item: %v", err)
	}
	return id
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_SearchHistory(t *testing.T) {
	env := newTestMCPDeps(t)
	env.insertText(t, "alpha release notes")
	env.insertText(t, "beta checklist")
	handler := mcpSearchHistory(env.deps)

	req := makeCallToolRequest("search_history", map[string]interface{}{
		"query": "alp",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var res storage.SearchResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 {
		t.Fatalf("expected 1 match, got total=%d items=%d", res.Total, len(res.Items))
	}
	if res.Items[0].Text != "alpha release notes" {
		t.Fatalf("unexpected match: %s", res.Items[0].Text)
	}
}

func TestMCPTool_SearchHistory_EmptyQueryListsRecent(t *testing.T) {
	env := newTestMCPDeps(t)
	for i := 0; i < 3; i++ {
		env.insertText(t, fmt.Sprintf("entry %d", i))
	}
	handler := mcpSearchHistory(env.deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_history", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var res storage.SearchResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("expected 3 items, got %d", res.Total)
	}
	if res.Items[0].Text != "entry 2" {
		t.Fatalf("expected newest first, got %s", res.Items[0].Text)
	}
}

func TestMCPTool_GetItem(t *testing.T) {
	env := newTestMCPDeps(t)
	id := env.insertText(t, "hello from history")
	handler := mcpGetItem(env.deps)

	req := makeCallToolRequest("get_item", map[string]interface{}{
		"id": int(id),
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var item mcpItem
	if err := json.Unmarshal([]byte(toolText(t, result)), &item); err != nil {
		t.Fatalf("failed to parse item: %v", err)
	}
	if item.Kind != storage.KindText || item.Text != "hello from history" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestMCPTool_GetItem_OmitsImageBytes(t *testing.T) {
	env := newTestMCPDeps(t)
	png := []byte{0x89, 'P', 'N', 'G', 9, 9}
	img := &storage.Image{PNG: png, Width: 8, Height: 6}
	id, err := env.store.InsertItem(storage.KindImage, "image://8x6", capture.ImageFingerprint(8, 6, png), img)
	if err != nil {
		t.Fatalf("inserting item: %v", err)
	}
	handler := mcpGetItem(env.deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_item", map[string]interface{}{
		"id": int(id),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		t.Fatalf("failed to parse item: %v", err)
	}
	if _, ok := fields["imagePng"]; ok {
		t.Fatal("response carries raw image bytes")
	}
	if fields["imageWidth"] != float64(8) || fields["imageHeight"] != float64(6) {
		t.Fatalf("dimensions missing from response: %s", text)
	}
}

func TestMCPTool_GetItem_MissingAndUnknownID(t *testing.T) {
	env := newTestMCPDeps(t)
	handler := mcpGetItem(env.deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_item", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error for missing id")
	}

	result, err = handler(context.Background(), makeCallToolRequest("get_item", map[string]interface{}{
		"id": 999,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error for unknown id")
	}
}

func TestMCPTool_RestoreItem(t *testing.T) {
	env := newTestMCPDeps(t)
	id := env.insertText(t, "bring me back")
	handler := mcpRestoreItem(env.deps)

	result, err := handler(context.Background(), makeCallToolRequest("restore_item", map[string]interface{}{
		"id": int(id),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	if text := toolText(t, result); text != fmt.Sprintf("Restored item %d to the clipboard", id) {
		t.Fatalf("unexpected response: %s", text)
	}
	if len(env.clip.texts) != 1 || env.clip.texts[0] != "bring me back" {
		t.Fatalf("clipboard writes = %q, want the item text", env.clip.texts)
	}
	fp := capture.Fingerprint(storage.KindText, "bring me back")
	if !env.state.RecentlyWritten(fp, 2*time.Second) {
		t.Fatal("restored fingerprint was not recorded as a recent write")
	}
}

func TestMCPResource_Recent(t *testing.T) {
	env := newTestMCPDeps(t)
	for i := 0; i < 12; i++ {
		env.insertText(t, fmt.Sprintf("clip %d", i))
	}
	handler := mcpResourceRecent(env.deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("clipboard://recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var items []storage.SearchItem
	if err := json.Unmarshal([]byte(tc.Text), &items); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(items) != 10 {
		t.Fatalf("expected 10 recent items, got %d", len(items))
	}
	if items[0].Text != "clip 11" {
		t.Fatalf("expected newest first, got %s", items[0].Text)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	env := newTestMCPDeps(t)
	searchHandler := mcpSearchHistory(env.deps)
	getHandler := mcpGetItem(env.deps)
	id := env.insertText(t, "shared item")

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := searchHandler(context.Background(), makeCallToolRequest("search_history", map[string]interface{}{
				"query": "shared",
			}))
			if err != nil {
				errs <- err
				return
			}
			if result.IsError {
				errs <- fmt.Errorf("search returned an error result")
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := getHandler(context.Background(), makeCallToolRequest("get_item", map[string]interface{}{
				"id": int(id),
			}))
			if err != nil {
				errs <- err
				return
			}
			if result.IsError {
				errs <- fmt.Errorf("get returned an error result")
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}
