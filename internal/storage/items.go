package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// previewTextLen caps list previews. Longer texts are flattened and truncated
// with a trailing ellipsis.
const previewTextLen = 140

// maxSearchLimit bounds a single history page.
const maxSearchLimit = 200

// InsertItem stores a new clipboard item and returns its id. Timestamps are
// assigned here, in unix milliseconds. For image items img carries the PNG
// bytes and dimensions; for text and file items pass nil.
func (s *Store) InsertItem(kind, text, fingerprint string, img *Image) (int64, error) {
	now := time.Now().UnixMilli()

	var png any
	var width, height any
	if img != nil {
		png = img.PNG
		width = img.Width
		height = img.Height
	}

	res, err := s.db.Exec(`
		INSERT INTO items (created_at, kind, text, fingerprint, image_png, image_width, image_height)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		now, kind, text, fingerprint, png, width, height,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// LastFingerprint returns the fingerprint of the most recently stored visible
// item, or the empty string when the history has no visible items.
func (s *Store) LastFingerprint() (string, error) {
	var fp string
	err := s.db.QueryRow(`
		SELECT fingerprint FROM items
		WHERE deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
	).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fp, nil
}

// EnforceMaxItems soft-deletes the oldest unpinned, unfavorited items beyond
// maxItems. Pinned and favorite items never count against the cap and are
// never evicted.
func (s *Store) EnforceMaxItems(maxItems int64) error {
	if maxItems <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		UPDATE items SET deleted = 1
		WHERE id IN (
			SELECT id FROM items
			WHERE deleted = 0 AND pinned = 0 AND favorite = 0
			ORDER BY created_at DESC, id DESC
			LIMIT -1 OFFSET ?
		)`,
		maxItems,
	)
	if err != nil {
		return fmt.Errorf("enforcing retention: %w", err)
	}
	return nil
}

// SearchItems returns one page of visible history plus the total match count.
// An empty query lists pinned items first, then favorites, then the rest by
// recency. A non-empty query runs a prefix match per term against the
// full-text index under the same ordering. Unknown filters behave as
// FilterAll.
func (s *Store) SearchItems(query string, limit, offset int64, filter string) (SearchResult, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	switch filter {
	case FilterFavorites, FilterPinned:
	default:
		filter = FilterAll
	}

	match := ftsMatchExpr(query)
	if match == "" {
		return s.listItems(limit, offset, filter)
	}
	return s.matchItems(match, limit, offset, filter)
}

// ftsMatchExpr turns a raw user query into an FTS5 match expression: each
// whitespace-separated term is quoted and given a trailing wildcard. Embedded
// double quotes are stripped so user input can't break out of the quoting.
func ftsMatchExpr(query string) string {
	query = strings.ReplaceAll(query, `"`, " ")
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, `"`+t+`"*`)
	}
	return strings.Join(parts, " ")
}

func (s *Store) listItems(limit, offset int64, filter string) (SearchResult, error) {
	var total int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM items
		WHERE deleted = 0
		  AND (? = 'all' OR (? = 'favorites' AND favorite = 1) OR (? = 'pinned' AND pinned = 1))`,
		filter, filter, filter,
	).Scan(&total)
	if err != nil {
		return SearchResult{}, fmt.Errorf("counting items: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, kind, COALESCE(text, ''), image_width, image_height, favorite, pinned
		FROM items
		WHERE deleted = 0
		  AND (? = 'all' OR (? = 'favorites' AND favorite = 1) OR (? = 'pinned' AND pinned = 1))
		ORDER BY pinned DESC, favorite DESC, created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		filter, filter, filter, limit, offset,
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items, err := scanSearchItems(rows)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Total: total, Items: items}, nil
}

func (s *Store) matchItems(match string, limit, offset int64, filter string) (SearchResult, error) {
	var total int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM items_fts f
		JOIN items i ON i.id = f.rowid
		WHERE f.text MATCH ?
		  AND i.deleted = 0
		  AND (? = 'all' OR (? = 'favorites' AND i.favorite = 1) OR (? = 'pinned' AND i.pinned = 1))`,
		match, filter, filter, filter,
	).Scan(&total)
	if err != nil {
		return SearchResult{}, fmt.Errorf("counting matches: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT i.id, i.created_at, i.kind, COALESCE(i.text, ''), i.image_width, i.image_height, i.favorite, i.pinned
		FROM items_fts f
		JOIN items i ON i.id = f.rowid
		WHERE f.text MATCH ?
		  AND i.deleted = 0
		  AND (? = 'all' OR (? = 'favorites' AND i.favorite = 1) OR (? = 'pinned' AND i.pinned = 1))
		ORDER BY i.pinned DESC, i.favorite DESC, i.created_at DESC, i.id DESC
		LIMIT ? OFFSET ?`,
		match, filter, filter, filter, limit, offset,
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	items, err := scanSearchItems(rows)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Total: total, Items: items}, nil
}

func scanSearchItems(rows *sql.Rows) ([]SearchItem, error) {
	items := []SearchItem{}
	for rows.Next() {
		var it SearchItem
		var width, height sql.NullInt64
		if err := rows.Scan(&it.ID, &it.CreatedAt, &it.Kind, &it.Text, &width, &height, &it.Favorite, &it.Pinned); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		if width.Valid {
			it.ImageWidth = &width.Int64
		}
		if height.Valid {
			it.ImageHeight = &height.Int64
		}
		it.PreviewText = previewText(it.Kind, it.Text)
		items = append(items, it)
	}
	return items, rows.Err()
}

// previewText builds the list preview for a row: a fixed label for images,
// otherwise the text flattened to one line and truncated.
func previewText(kind, text string) string {
	if kind == KindImage {
		return "Image"
	}
	flat := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, text)
	runes := []rune(flat)
	if len(runes) <= previewTextLen {
		return flat
	}
	return string(runes[:previewTextLen]) + "..."
}

// GetItemPreview returns the full view of one visible item, image bytes
// included. Returns ErrNotFound for missing or deleted ids.
func (s *Store) GetItemPreview(id int64) (ItemPreview, error) {
	var p ItemPreview
	var width, height sql.NullInt64
	err := s.db.QueryRow(`
		SELECT kind, COALESCE(text, ''), image_png, image_width, image_height
		FROM items
		WHERE id = ? AND deleted = 0`, id,
	).Scan(&p.Kind, &p.Text, &p.ImagePNG, &width, &height)
	if err == sql.ErrNoRows {
		return ItemPreview{}, ErrNotFound
	}
	if err != nil {
		return ItemPreview{}, err
	}
	if width.Valid {
		p.ImageWidth = &width.Int64
	}
	if height.Valid {
		p.ImageHeight = &height.Int64
	}
	return p, nil
}

// GetItemPayload returns what a restore needs to write the item back to the
// OS clipboard. Returns ErrNotFound for missing or deleted ids.
func (s *Store) GetItemPayload(id int64) (ItemPayload, error) {
	var p ItemPayload
	var png []byte
	var width, height sql.NullInt64
	err := s.db.QueryRow(`
		SELECT kind, COALESCE(text, ''), image_png, image_width, image_height
		FROM items
		WHERE id = ? AND deleted = 0`, id,
	).Scan(&p.Kind, &p.Text, &png, &width, &height)
	if err == sql.ErrNoRows {
		return ItemPayload{}, ErrNotFound
	}
	if err != nil {
		return ItemPayload{}, err
	}
	p.ImagePNG = png
	p.ImageWidth = width.Int64
	p.ImageHeight = height.Int64
	return p, nil
}

// SetFavorite marks or unmarks an item as favorite. Missing ids are a no-op.
func (s *Store) SetFavorite(id int64, favorite bool) error {
	_, err := s.db.Exec(`UPDATE items SET favorite = ? WHERE id = ?`, boolInt(favorite), id)
	if err != nil {
		return fmt.Errorf("setting favorite: %w", err)
	}
	return nil
}

// SetPinned marks or unmarks an item as pinned. Missing ids are a no-op.
func (s *Store) SetPinned(id int64, pinned bool) error {
	_, err := s.db.Exec(`UPDATE items SET pinned = ? WHERE id = ?`, boolInt(pinned), id)
	if err != nil {
		return fmt.Errorf("setting pinned: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes one item regardless of its pinned or favorite
// state. Missing ids are a no-op.
func (s *Store) DeleteItem(id int64) error {
	_, err := s.db.Exec(`UPDATE items SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ClearHistory soft-deletes all visible items except pinned and favorite
// ones.
func (s *Store) ClearHistory() error {
	_, err := s.db.Exec(`UPDATE items SET deleted = 1 WHERE deleted = 0 AND pinned = 0 AND favorite = 0`)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// ClearAllHistory soft-deletes every visible item, pinned and favorite
// included.
func (s *Store) ClearAllHistory() error {
	_, err := s.db.Exec(`UPDATE items SET deleted = 1 WHERE deleted = 0`)
	if err != nil {
		return fmt.Errorf("clearing all history: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
