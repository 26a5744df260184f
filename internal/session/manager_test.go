package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string][]byte
	puts    int
	deletes int
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, id string, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.records[id] = append([]byte(nil), record...)
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return record, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.records, id)
	return nil
}

func (s *fakeStore) List(_ context.Context) ([]Entry, error) {
	return nil, nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) deleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

func (s *fakeStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func pngBuffer(t *testing.T, shade uint8) domain.ImageBuffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return domain.ImageBuffer{Data: buf.Bytes(), MIME: "image/png"}
}

func entriesOf(t *testing.T, n int) []domain.ImageBuffer {
	t.Helper()
	out := make([]domain.ImageBuffer, n)
	for i := range out {
		out[i] = pngBuffer(t, uint8(i*20))
	}
	return out
}

func TestBuildSnapshotWindowAndCursorRemap(t *testing.T) {
	st := State{Entries: entriesOf(t, 7), Index: 6, Prompt: "warm sunset tones", ActiveTab: "adjust"}
	snap, err := BuildSnapshot(st, 5, 64, 60)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if len(snap.History) != 5 {
		t.Fatalf("expected 5 thumbnails, got %d", len(snap.History))
	}
	if snap.HistoryIndex != 4 {
		t.Fatalf("expected remapped cursor 4, got %d", snap.HistoryIndex)
	}
	if snap.Prompt != "warm sunset tones" || snap.ActiveTab != "adjust" {
		t.Fatalf("prompt/tab not carried: %+v", snap)
	}
}

func TestBuildSnapshotCursorFloorsAtZero(t *testing.T) {
	// Cursor far back in the truncated region remaps to the oldest retained
	// thumbnail.
	st := State{Entries: entriesOf(t, 7), Index: 1}
	snap, err := BuildSnapshot(st, 5, 64, 60)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if snap.HistoryIndex != 0 {
		t.Fatalf("expected floored cursor 0, got %d", snap.HistoryIndex)
	}
}

func TestBuildSnapshotSmallHistoryUntouched(t *testing.T) {
	st := State{Entries: entriesOf(t, 3), Index: 2}
	snap, err := BuildSnapshot(st, 5, 64, 60)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if len(snap.History) != 3 || snap.HistoryIndex != 2 {
		t.Fatalf("expected 3 thumbs at cursor 2, got %d at %d", len(snap.History), snap.HistoryIndex)
	}
}

func TestAutosaverDebouncesBursts(t *testing.T) {
	store := newFakeStore()
	st := State{Entries: entriesOf(t, 2), Index: 1}
	saver := NewAutosaver("s1", store, func() State { return st },
		Options{Delay: 30 * time.Millisecond, Window: 5, ThumbnailDim: 32, Logger: zerolog.Nop()})
	defer saver.Close()

	for i := 0; i < 5; i++ {
		saver.Notify()
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.putCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Allow any stray timer to fire before counting.
	time.Sleep(100 * time.Millisecond)

	if got := store.putCount(); got != 1 {
		t.Fatalf("expected exactly one save for the burst, got %d", got)
	}
	if !store.has("s1") {
		t.Fatalf("expected snapshot record to exist")
	}
}

func TestAutosaverEmptyHistoryDeletesRecord(t *testing.T) {
	store := newFakeStore()
	store.records["s1"] = []byte(`{"history":[],"historyIndex":0}`)
	saver := NewAutosaver("s1", store, func() State { return State{} },
		Options{Delay: time.Hour, Logger: zerolog.Nop()})
	defer saver.Close()

	saver.Flush()
	if store.has("s1") {
		t.Fatalf("expected record to be deleted for empty history")
	}
	if store.putCount() != 0 {
		t.Fatalf("no write expected for empty history, got %d", store.putCount())
	}
}

func TestAutosaverQuotaFailureClearsPriorRecord(t *testing.T) {
	store := newFakeStore()
	store.records["s1"] = []byte(`old`)
	store.putErr = domain.ErrQuotaExceeded
	st := State{Entries: entriesOf(t, 1), Index: 0}
	saver := NewAutosaver("s1", store, func() State { return st },
		Options{Delay: time.Hour, ThumbnailDim: 32, Logger: zerolog.Nop()})
	defer saver.Close()

	saver.Flush() // must not panic or propagate the error
	if store.has("s1") {
		t.Fatalf("expected prior record removed after quota failure")
	}
	if store.deleteCount() == 0 {
		t.Fatalf("expected a delete after quota failure")
	}
}

func TestAutosaverFlushIsSynchronous(t *testing.T) {
	store := newFakeStore()
	st := State{Entries: entriesOf(t, 1), Index: 0}
	saver := NewAutosaver("s1", store, func() State { return st },
		Options{Delay: time.Hour, ThumbnailDim: 32, Logger: zerolog.Nop()})
	defer saver.Close()

	saver.Notify() // pending far in the future
	saver.Flush()
	if store.putCount() != 1 {
		t.Fatalf("expected one synchronous save, got %d", store.putCount())
	}
}

func TestAutosaverClosedDoesNotSave(t *testing.T) {
	store := newFakeStore()
	st := State{Entries: entriesOf(t, 1), Index: 0}
	saver := NewAutosaver("s1", store, func() State { return st },
		Options{Delay: 10 * time.Millisecond, ThumbnailDim: 32, Logger: zerolog.Nop()})
	saver.Notify()
	saver.Close()
	time.Sleep(50 * time.Millisecond)
	if store.putCount() != 0 {
		t.Fatalf("save after Close, puts=%d", store.putCount())
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := newFakeStore()
	st := State{Entries: entriesOf(t, 7), Index: 6, Prompt: "soft film grain", ActiveTab: "filters"}
	snap, err := BuildSnapshot(st, 5, 64, 60)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	record, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Put(context.Background(), "s1", record); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := Restore(context.Background(), store, "s1", zerolog.Nop())
	if got == nil {
		t.Fatalf("expected a restored session")
	}
	if len(got.Entries) != 5 {
		t.Fatalf("expected 5 restored entries, got %d", len(got.Entries))
	}
	if got.Index != 4 {
		t.Fatalf("expected restored cursor 4, got %d", got.Index)
	}
	if got.Prompt != "soft film grain" || got.ActiveTab != "filters" {
		t.Fatalf("prompt/tab not restored: %+v", got)
	}
	for i, entry := range got.Entries {
		if entry.MIME != "image/jpeg" {
			t.Fatalf("entry %d: expected jpeg thumbnail, got %s", i, entry.MIME)
		}
	}
}

func TestRestoreColdStart(t *testing.T) {
	store := newFakeStore()

	if got := Restore(context.Background(), store, "absent", zerolog.Nop()); got != nil {
		t.Fatalf("expected cold start for absent record, got %+v", got)
	}

	store.records["garbled"] = []byte("{not json")
	if got := Restore(context.Background(), store, "garbled", zerolog.Nop()); got != nil {
		t.Fatalf("expected cold start for corrupt record, got %+v", got)
	}

	store.records["badthumb"] = []byte(`{"history":["data:image/jpeg;base64,@@@"],"historyIndex":0}`)
	if got := Restore(context.Background(), store, "badthumb", zerolog.Nop()); got != nil {
		t.Fatalf("expected cold start for corrupt thumbnail, got %+v", got)
	}
}

func TestRestoreClampsIndex(t *testing.T) {
	store := newFakeStore()
	snap, err := BuildSnapshot(State{Entries: entriesOf(t, 2), Index: 1}, 5, 32, 60)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	snap.HistoryIndex = 9 // record hand-edited or from an older build
	record, _ := snap.Encode()
	store.records["s1"] = record

	got := Restore(context.Background(), store, "s1", zerolog.Nop())
	if got == nil {
		t.Fatalf("expected restore to succeed")
	}
	if got.Index != 1 {
		t.Fatalf("expected clamped index 1, got %d", got.Index)
	}
}
