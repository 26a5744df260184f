// Package storage provides a filesystem-backed snapshot store. It is
// intended for development and test environments where keeping snapshots in
// flat files is easier to inspect than a database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"server/internal/domain"
	"server/internal/session"
)

const recordExt = ".json"

// FileStore keeps one snapshot record per session as a file under its base
// directory. Writes go through a temp file and rename so a crash mid-write
// never leaves a truncated record behind.
type FileStore struct {
	basePath string
	maxBytes int
}

// NewFileStore initializes a FileStore rooted at basePath. Records larger
// than maxBytes are rejected with domain.ErrQuotaExceeded.
func NewFileStore(basePath string, maxBytes int) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if maxBytes <= 0 {
		return nil, errors.New("storage: max record size must be positive")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, maxBytes: maxBytes}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string { return s.basePath }

func (s *FileStore) Put(ctx context.Context, sessionID string, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.recordPath(sessionID)
	if err != nil {
		return err
	}
	if len(record) > s.maxBytes {
		return fmt.Errorf("record is %d bytes, limit %d: %w", len(record), s.maxBytes, domain.ErrQuotaExceeded)
	}

	tmp, err := os.CreateTemp(s.basePath, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp record: %w", err)
	}
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: publish record: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.recordPath(sessionID)
	if err != nil {
		return nil, err
	}
	record, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read record: %w", err)
	}
	return record, nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.recordPath(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete record: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]session.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: list records: %w", err)
	}

	entries := make([]session.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, session.Entry{
			SessionID: strings.TrimSuffix(name, recordExt),
			Bytes:     int(info.Size()),
			UpdatedAt: info.ModTime(),
		})
	}
	return entries, nil
}

// recordPath maps a session id onto a file inside the base directory,
// rejecting ids that would escape it.
func (s *FileStore) recordPath(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("storage: session id is required")
	}
	if strings.ContainsAny(sessionID, "/\\") || strings.Contains(sessionID, "..") {
		return "", fmt.Errorf("storage: invalid session id %q", sessionID)
	}
	return filepath.Join(s.basePath, sessionID+recordExt), nil
}

var _ session.Store = (*FileStore)(nil)
