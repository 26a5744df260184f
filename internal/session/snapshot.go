// Package session implements best-effort, debounced persistence of edit
// history: a bounded window of compressed thumbnails is saved to a durable
// store on every history change and restored once at session open. Nothing
// in this package is allowed to fail the primary editing workflow; the worst
// outcome is loss of autosave or a cold start.
package session

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the persisted projection of an edit history: a bounded list of
// lossy-encoded thumbnail data URLs (most-recent window), the cursor
// remapped into that window, the last-used prompt and the last active edit
// tab. It recovers workflow continuity, not pixel-perfect history.
type Snapshot struct {
	History      []string `json:"history"`
	HistoryIndex int      `json:"historyIndex"`
	Prompt       string   `json:"prompt"`
	ActiveTab    string   `json:"activeTab"`
}

// Encode serializes the snapshot to its single-record storage form.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored record.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
