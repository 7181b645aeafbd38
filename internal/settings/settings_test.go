package settings

import (
	"encoding/json"
	"testing"
)

// TestApplyClampsRanges verifies numeric values outside their valid range are
// clamped at both ends rather than rejected.
func TestApplyClampsRanges(t *testing.T) {
	tests := []struct {
		key  string
		raw  string
		want int64
		get  func(Settings) int64
	}{
		{KeyPollingIntervalMS, "50", 100, func(s Settings) int64 { return s.PollingIntervalMS }},
		{KeyPollingIntervalMS, "9000", 5000, func(s Settings) int64 { return s.PollingIntervalMS }},
		{KeyPollingIntervalMS, "400", 400, func(s Settings) int64 { return s.PollingIntervalMS }},
		{KeyMaxItems, "1", 10, func(s Settings) int64 { return s.MaxItems }},
		{KeyMaxItems, "99999", 5000, func(s Settings) int64 { return s.MaxItems }},
		{KeyWindowOpacity, "10", 35, func(s Settings) int64 { return s.WindowOpacity }},
		{KeyWindowOpacity, "250", 100, func(s Settings) int64 { return s.WindowOpacity }},
	}

	for _, tt := range tests {
		s := Default()
		if !Apply(&s, tt.key, json.RawMessage(tt.raw)) {
			t.Errorf("Apply(%q, %s) not recognized", tt.key, tt.raw)
			continue
		}
		if got := tt.get(s); got != tt.want {
			t.Errorf("Apply(%q, %s) = %d, want %d", tt.key, tt.raw, got, tt.want)
		}
	}
}

// TestApplyIgnoresUnknownKey verifies unknown keys leave the record untouched
// and report unrecognized.
func TestApplyIgnoresUnknownKey(t *testing.T) {
	s := Default()
	if Apply(&s, "theme_color", json.RawMessage(`"red"`)) {
		t.Error("unknown key reported as recognized")
	}
	if s != Default() {
		t.Errorf("settings changed by unknown key: %+v", s)
	}
}

// TestApplyIgnoresWrongType verifies a value of the wrong JSON type is
// dropped without touching the field.
func TestApplyIgnoresWrongType(t *testing.T) {
	s := Default()
	if !Apply(&s, KeyMaxItems, json.RawMessage(`"lots"`)) {
		t.Error("known key reported as unrecognized")
	}
	if s.MaxItems != Default().MaxItems {
		t.Errorf("MaxItems = %d, want default %d", s.MaxItems, Default().MaxItems)
	}

	if !Apply(&s, KeyCaptureEnabled, json.RawMessage(`"yes"`)) {
		t.Error("known key reported as unrecognized")
	}
	if !s.CaptureEnabled {
		t.Error("CaptureEnabled changed by wrong-typed value")
	}
}

func TestApplyBools(t *testing.T) {
	s := Default()
	Apply(&s, KeyCaptureEnabled, json.RawMessage(`false`))
	if s.CaptureEnabled {
		t.Error("CaptureEnabled = true, want false")
	}
	Apply(&s, KeyBlurClose, json.RawMessage(`false`))
	if s.BlurClose {
		t.Error("BlurClose = true, want false")
	}
	Apply(&s, KeyColoredIcons, json.RawMessage(`false`))
	if s.ColoredIcons {
		t.Error("ColoredIcons = true, want false")
	}
}

func TestApplyHotkey(t *testing.T) {
	s := Default()
	if !Apply(&s, KeyHotkey, json.RawMessage(`"Ctrl+Alt+V"`)) {
		t.Fatal("hotkey key not recognized")
	}
	if s.Hotkey != "Ctrl+Alt+V" {
		t.Errorf("Hotkey = %q, want %q", s.Hotkey, "Ctrl+Alt+V")
	}
}

func TestKeysCoverAllFields(t *testing.T) {
	keys := Keys()
	if len(keys) != 7 {
		t.Fatalf("Keys() returned %d keys, want 7", len(keys))
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
	}
}
