package session

import (
	"context"
	"time"
)

// Entry describes a persisted snapshot without its payload.
type Entry struct {
	SessionID string
	Bytes     int
	UpdatedAt time.Time
}

// Store is the durable-storage contract for session snapshots: one record
// per session, replaced wholesale on every save. Implementations return
// domain.ErrQuotaExceeded when a record would exceed their size budget and
// domain.ErrSnapshotNotFound from Get when no record exists.
type Store interface {
	Put(ctx context.Context, sessionID string, record []byte) error
	Get(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]Entry, error)
}
