// Package clipboard adapts the OS clipboard for the daemon: typed reads for
// the capture pipeline and writes for restores.
package clipboard

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"sync"

	xclip "golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// System talks to the real OS clipboard.
type System struct {
	logger *slog.Logger
}

// NewSystem initializes OS clipboard access. It fails when the platform has
// no usable clipboard, e.g. a headless session without a display server.
func NewSystem() (*System, error) {
	initOnce.Do(func() { initErr = xclip.Init() })
	if initErr != nil {
		return nil, fmt.Errorf("initializing clipboard access: %w", initErr)
	}
	return &System{logger: slog.Default()}, nil
}

// Text returns the clipboard text, or "" when there is none.
func (s *System) Text() string {
	return string(xclip.Read(xclip.FmtText))
}

// Image returns the clipboard image as PNG bytes plus pixel dimensions.
// Undecodable image data is reported as absent.
func (s *System) Image() ([]byte, int64, int64, bool) {
	data := xclip.Read(xclip.FmtImage)
	if len(data) == 0 {
		return nil, 0, 0, false
	}
	width, height, err := pngDimensions(data)
	if err != nil {
		s.logger.Warn("clipboard image is not decodable PNG", "error", err)
		return nil, 0, 0, false
	}
	return data, width, height, true
}

// Files returns the paths when the clipboard holds a file list. Only macOS
// exposes one; elsewhere file payloads are classified from their text form.
func (s *System) Files() []string {
	return readFileList(s.logger)
}

// WriteText puts text on the OS clipboard.
func (s *System) WriteText(text string) {
	xclip.Write(xclip.FmtText, []byte(text))
}

// WriteImage puts PNG bytes on the OS clipboard.
func (s *System) WriteImage(data []byte) {
	xclip.Write(xclip.FmtImage, data)
}

func pngDimensions(data []byte) (int64, int64, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return int64(cfg.Width), int64(cfg.Height), nil
}
