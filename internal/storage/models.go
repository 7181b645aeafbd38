package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Item kinds. Every stored row carries exactly one of these.
const (
	KindText  = "text"
	KindFile  = "file"
	KindImage = "image"
)

// Search filters. Anything else falls back to FilterAll.
const (
	FilterAll       = "all"
	FilterFavorites = "favorites"
	FilterPinned    = "pinned"
)

// Image is an image payload: PNG-encoded bytes plus pixel dimensions.
type Image struct {
	PNG    []byte
	Width  int64
	Height int64
}

// SearchItem is one row of a history page. Image bytes are omitted from
// listings; clients fetch them per item via the preview or payload calls.
type SearchItem struct {
	ID          int64  `json:"id"`
	CreatedAt   int64  `json:"createdAt"`
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	PreviewText string `json:"previewText"`
	ImageWidth  *int64 `json:"imageWidth,omitempty"`
	ImageHeight *int64 `json:"imageHeight,omitempty"`
	Favorite    bool   `json:"favorite"`
	Pinned      bool   `json:"pinned"`
}

// SearchResult is a page of history rows plus the total match count for the
// same query and filter.
type SearchResult struct {
	Total int          `json:"total"`
	Items []SearchItem `json:"items"`
}

// ItemPreview is the full single-item view, including image bytes when the
// item is an image.
type ItemPreview struct {
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	ImagePNG    []byte `json:"imagePng,omitempty"`
	ImageWidth  *int64 `json:"imageWidth,omitempty"`
	ImageHeight *int64 `json:"imageHeight,omitempty"`
}

// ItemPayload carries everything needed to write an item back to the OS
// clipboard.
type ItemPayload struct {
	Kind        string
	Text        string
	ImagePNG    []byte
	ImageWidth  int64
	ImageHeight int64
}
