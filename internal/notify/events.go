// Package notify broadcasts daemon events to connected UI clients.
package notify

// Event names carried on the stream.
const (
	EventItemAdded     = "item_added"
	EventPausedChanged = "paused_changed"
)

// Event is a named payload fanned out to all subscribers.
type Event struct {
	Name    string
	Payload any
}

// ItemAdded is published after a new clipboard item lands in the store.
type ItemAdded struct {
	ID          int64  `json:"id"`
	PreviewText string `json:"previewText"`
	CreatedAt   int64  `json:"createdAt"`
	Pinned      bool   `json:"pinned"`
}

// PausedChanged is published whenever the capture pause flag flips.
type PausedChanged struct {
	Paused bool `json:"paused"`
}
