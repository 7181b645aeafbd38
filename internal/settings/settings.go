// Package settings defines the user-tunable settings record persisted in the
// store as key/value overrides on top of compiled defaults.
package settings

import (
	"encoding/json"
	"runtime"
)

// Keys of the persisted settings rows. Unknown keys in the store are ignored
// on load so newer databases stay readable by older builds.
const (
	KeyHotkey            = "hotkey"
	KeyBlurClose         = "blur_close"
	KeyPollingIntervalMS = "polling_interval_ms"
	KeyCaptureEnabled    = "capture_enabled"
	KeyMaxItems          = "max_items"
	KeyWindowOpacity     = "window_opacity"
	KeyColoredIcons      = "colored_icons"
)

// Clamp bounds for numeric settings. Out-of-range writes are clamped, not
// rejected.
const (
	MinPollingIntervalMS = 100
	MaxPollingIntervalMS = 5000
	MinMaxItems          = 10
	MaxMaxItems          = 5000
	MinWindowOpacity     = 35
	MaxWindowOpacity     = 100
)

// Settings is the single logical settings record. The popup/hotkey fields are
// stored and served for UI clients; the capture core itself only consumes
// PollingIntervalMS, CaptureEnabled, and MaxItems.
type Settings struct {
	Hotkey            string `json:"hotkey"`
	BlurClose         bool   `json:"blur_close"`
	PollingIntervalMS int64  `json:"polling_interval_ms"`
	CaptureEnabled    bool   `json:"capture_enabled"`
	MaxItems          int64  `json:"max_items"`
	WindowOpacity     int64  `json:"window_opacity"`
	ColoredIcons      bool   `json:"colored_icons"`
}

// Default returns the compiled-in settings. The hotkey default follows the
// host platform's modifier conventions.
func Default() Settings {
	hotkey := "Ctrl+Shift+P"
	if runtime.GOOS == "darwin" {
		hotkey = "Cmd+Shift+P"
	}
	return Settings{
		Hotkey:            hotkey,
		BlurClose:         true,
		PollingIntervalMS: 400,
		CaptureEnabled:    true,
		MaxItems:          15,
		WindowOpacity:     78,
		ColoredIcons:      true,
	}
}

// Apply merges one persisted JSON value into s. Unknown keys and values of
// the wrong JSON type are ignored; numeric values are clamped to their valid
// range. Returns true when the key was recognized.
func Apply(s *Settings, key string, raw json.RawMessage) bool {
	switch key {
	case KeyHotkey:
		var v string
		if json.Unmarshal(raw, &v) == nil {
			s.Hotkey = v
		}
	case KeyBlurClose:
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			s.BlurClose = v
		}
	case KeyPollingIntervalMS:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			s.PollingIntervalMS = clamp(v, MinPollingIntervalMS, MaxPollingIntervalMS)
		}
	case KeyCaptureEnabled:
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			s.CaptureEnabled = v
		}
	case KeyMaxItems:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			s.MaxItems = clamp(v, MinMaxItems, MaxMaxItems)
		}
	case KeyWindowOpacity:
		var v int64
		if json.Unmarshal(raw, &v) == nil {
			s.WindowOpacity = clamp(v, MinWindowOpacity, MaxWindowOpacity)
		}
	case KeyColoredIcons:
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			s.ColoredIcons = v
		}
	default:
		return false
	}
	return true
}

// Keys returns all recognized settings keys.
func Keys() []string {
	return []string{
		KeyHotkey,
		KeyBlurClose,
		KeyPollingIntervalMS,
		KeyCaptureEnabled,
		KeyMaxItems,
		KeyWindowOpacity,
		KeyColoredIcons,
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
