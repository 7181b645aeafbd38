package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/clipd/internal/notify"
	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
)

// Source reads the current OS clipboard payloads. Implementations return
// zero values when a representation is absent.
type Source interface {
	// Files returns the paths when the clipboard holds a file list.
	Files() []string
	// Text returns the clipboard text, or "" when there is none.
	Text() string
	// Image returns the clipboard image as PNG bytes plus pixel dimensions.
	Image() (png []byte, width, height int64, ok bool)
}

// Store is the slice of storage the pipeline needs. Implemented by
// storage.Store.
type Store interface {
	InsertItem(kind, text, fingerprint string, img *storage.Image) (int64, error)
	LastFingerprint() (string, error)
	EnforceMaxItems(maxItems int64) error
}

// Publisher broadcasts events to UI clients. Implemented by notify.Hub.
type Publisher interface {
	Publish(e notify.Event)
}

// Options tune pipeline behavior.
type Options struct {
	// EchoWindow is how long after a restore the same fingerprint coming
	// back from the watcher is treated as our own echo and skipped.
	EchoWindow time.Duration
	// PreviewLength caps text previews in published events, in runes.
	PreviewLength int
}

// Pipeline is the capture worker: one goroutine draining change signals and
// storing whatever survives the gates.
type Pipeline struct {
	source  Source
	store   Store
	state   *state.State
	events  Publisher
	signals <-chan struct{}
	opts    Options
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline. Zero option fields get defaults: a two
// second echo window and 140-rune previews.
func NewPipeline(source Source, store Store, st *state.State, events Publisher, signals <-chan struct{}, opts Options) *Pipeline {
	if opts.EchoWindow <= 0 {
		opts.EchoWindow = 2 * time.Second
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = 140
	}
	return &Pipeline{
		source:  source,
		store:   store,
		state:   st,
		events:  events,
		signals: signals,
		opts:    opts,
		logger:  slog.Default(),
	}
}

// Run drains change signals until ctx is cancelled. Signals that arrive
// while a capture is in flight coalesce in the channel buffer; each drained
// signal triggers at most one stored item.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.signals:
		}

		if err := p.CaptureOnce(); err != nil {
			p.logger.Error("capture failed", "error", err)
		}
	}
}

// captured is one classified clipboard payload on its way into the store.
type captured struct {
	kind        string
	text        string
	fingerprint string
	image       *storage.Image
}

// CaptureOnce performs a single capture attempt: read, classify, gate,
// store, enforce retention, publish. Skipped captures are not errors.
func (p *Pipeline) CaptureOnce() error {
	if p.state.Paused() {
		return nil
	}
	settings := p.state.Settings()
	if !settings.CaptureEnabled {
		return nil
	}

	item, ok := p.read()
	if !ok {
		return nil
	}

	// A restore writes to the OS clipboard and the watcher reports that
	// write back. Skip the echo instead of re-storing it.
	if p.state.RecentlyWritten(item.fingerprint, p.opts.EchoWindow) {
		return nil
	}

	last, err := p.store.LastFingerprint()
	if err != nil {
		return fmt.Errorf("reading last fingerprint: %w", err)
	}
	if last == item.fingerprint {
		return nil
	}

	id, err := p.store.InsertItem(item.kind, item.text, item.fingerprint, item.image)
	if err != nil {
		return fmt.Errorf("storing %s item: %w", item.kind, err)
	}

	if err := p.store.EnforceMaxItems(settings.MaxItems); err != nil {
		p.logger.Warn("retention enforcement failed", "error", err)
	}

	p.events.Publish(notify.Event{
		Name: notify.EventItemAdded,
		Payload: notify.ItemAdded{
			ID:          id,
			PreviewText: p.preview(item),
			CreatedAt:   time.Now().UnixMilli(),
			Pinned:      false,
		},
	})

	p.logger.Debug("captured clipboard item", "id", id, "kind", item.kind)
	return nil
}

// read pulls the highest-priority payload off the clipboard: file lists
// first, then text (classified as file when it reads like paths), then
// images.
func (p *Pipeline) read() (captured, bool) {
	if paths := p.source.Files(); len(paths) > 0 {
		text := strings.Join(paths, "\n")
		return captured{
			kind:        storage.KindFile,
			text:        text,
			fingerprint: Fingerprint(storage.KindFile, text),
		}, true
	}

	if text := NormalizeText(p.source.Text()); text != "" {
		kind := storage.KindText
		if LooksLikeFilePayload(text) {
			kind = storage.KindFile
		}
		return captured{
			kind:        kind,
			text:        text,
			fingerprint: Fingerprint(kind, text),
		}, true
	}

	if png, width, height, ok := p.source.Image(); ok && len(png) > 0 {
		return captured{
			kind:        storage.KindImage,
			text:        fmt.Sprintf("image://%dx%d", width, height),
			fingerprint: ImageFingerprint(width, height, png),
			image:       &storage.Image{PNG: png, Width: width, Height: height},
		}, true
	}

	return captured{}, false
}

// preview builds the event preview: a fixed label for images, the raw path
// list for files, and a flattened truncated line for text.
func (p *Pipeline) preview(item captured) string {
	switch item.kind {
	case storage.KindImage:
		return "Image copied"
	case storage.KindFile:
		return item.text
	default:
		flat := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, item.text)
		runes := []rune(flat)
		if len(runes) > p.opts.PreviewLength {
			return string(runes[:p.opts.PreviewLength])
		}
		return flat
	}
}
