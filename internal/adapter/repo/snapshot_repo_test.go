package repo

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"server/internal/domain"
	"server/internal/infra"
)

func testRepo(t *testing.T, maxBytes int) *SnapshotRepo {
	t.Helper()
	db, err := infra.OpenDB(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotRepo(db, maxBytes)
}

func TestSnapshotRepoPutGetDelete(t *testing.T) {
	r := testRepo(t, 0)
	ctx := context.Background()

	if _, err := r.Get(ctx, "s1"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	if err := r.Put(ctx, "s1", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := r.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("first")) {
		t.Fatalf("unexpected record: %s", got)
	}

	// Saves replace the prior record wholesale.
	if err := r.Put(ctx, "s1", []byte("second")); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err = r.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("expected replaced record, got %s", got)
	}

	if err := r.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, "s1"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound after delete, got %v", err)
	}
	if err := r.Delete(ctx, "s1"); err != nil {
		t.Fatalf("deleting absent record should be a no-op, got %v", err)
	}
}

func TestSnapshotRepoQuota(t *testing.T) {
	r := testRepo(t, 16)
	ctx := context.Background()

	if err := r.Put(ctx, "s1", []byte("tiny")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	err := r.Put(ctx, "s1", bytes.Repeat([]byte("x"), 32))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	// The prior record must be left untouched by the rejected write.
	got, err := r.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("tiny")) {
		t.Fatalf("rejected write mutated the record: %s", got)
	}
}

func TestSnapshotRepoList(t *testing.T) {
	r := testRepo(t, 0)
	ctx := context.Background()

	entries, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %d", len(entries))
	}

	if err := r.Put(ctx, "a", []byte("aa")); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := r.Put(ctx, "b", []byte("bbbb")); err != nil {
		t.Fatalf("Put b: %v", err)
	}

	entries, err = r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	seen := map[string]int{}
	for _, e := range entries {
		seen[e.SessionID] = e.Bytes
	}
	if seen["a"] != 2 || seen["b"] != 4 {
		t.Fatalf("unexpected sizes: %+v", seen)
	}
}
