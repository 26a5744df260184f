// Package repo contains the durable-storage adapters behind the session
// persistence contract.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/session"
)

// DefaultMaxRecordBytes caps a single snapshot record. Snapshots are
// thumbnail-only precisely so they fit a small budget; anything larger
// indicates misconfiguration and is treated like an exhausted quota.
const DefaultMaxRecordBytes = 4 << 20

// SnapshotRepo stores one snapshot record per session in SQLite. Records are
// replaced wholesale on every save, mirroring the single-key local-storage
// contract the snapshots were designed for.
type SnapshotRepo struct {
	db       *sql.DB
	maxBytes int
}

// NewSnapshotRepo wraps db. maxBytes <= 0 applies DefaultMaxRecordBytes.
func NewSnapshotRepo(db *sql.DB, maxBytes int) *SnapshotRepo {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRecordBytes
	}
	return &SnapshotRepo{db: db, maxBytes: maxBytes}
}

// Put writes the record for a session, replacing any prior one. Records
// above the size budget are rejected with domain.ErrQuotaExceeded without
// touching the stored row.
func (r *SnapshotRepo) Put(ctx context.Context, sessionID string, record []byte) error {
	if sessionID == "" {
		return errors.New("repo: session id is required")
	}
	if len(record) > r.maxBytes {
		return fmt.Errorf("repo: record is %d bytes, budget %d: %w", len(record), r.maxBytes, domain.ErrQuotaExceeded)
	}
	const q = `
		INSERT INTO session_snapshots (session_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, q, sessionID, record, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("repo: put snapshot: %w", err)
	}
	return nil
}

// Get returns the stored record for a session.
func (r *SnapshotRepo) Get(ctx context.Context, sessionID string) ([]byte, error) {
	const q = `SELECT record FROM session_snapshots WHERE session_id = ?`
	var record []byte
	if err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("repo: get snapshot: %w", err)
	}
	return record, nil
}

// Delete removes the record for a session. Deleting an absent record is not
// an error.
func (r *SnapshotRepo) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM session_snapshots WHERE session_id = ?`
	if _, err := r.db.ExecContext(ctx, q, sessionID); err != nil {
		return fmt.Errorf("repo: delete snapshot: %w", err)
	}
	return nil
}

// List returns metadata for every stored snapshot, most recent first.
func (r *SnapshotRepo) List(ctx context.Context) ([]session.Entry, error) {
	const q = `SELECT session_id, length(record), updated_at FROM session_snapshots ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo: list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []session.Entry
	for rows.Next() {
		var entry session.Entry
		var updated int64
		if err := rows.Scan(&entry.SessionID, &entry.Bytes, &updated); err != nil {
			return nil, fmt.Errorf("repo: scan snapshot row: %w", err)
		}
		entry.UpdatedAt = time.Unix(updated, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate snapshots: %w", err)
	}
	return entries, nil
}

var _ session.Store = (*SnapshotRepo)(nil)
