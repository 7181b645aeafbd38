package storage

import (
	"encoding/json"
	"fmt"

	"github.com/kalambet/clipd/internal/settings"
)

// LoadSettings returns the effective settings: defaults overlaid with every
// persisted override. Unknown keys and values that fail to decode are
// skipped, so a database written by a newer build still loads.
func (s *Store) LoadSettings() (settings.Settings, error) {
	out := settings.Default()

	rows, err := s.db.Query(`SELECT key, value_json FROM settings`)
	if err != nil {
		return out, fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return out, fmt.Errorf("scanning setting row: %w", err)
		}
		settings.Apply(&out, key, json.RawMessage(raw))
	}
	return out, rows.Err()
}

// UpsertSetting persists one setting override as raw JSON under its key.
func (s *Store) UpsertSetting(key string, value json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value_json) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	return nil
}
