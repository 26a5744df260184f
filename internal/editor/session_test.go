package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/session"
)

func testPNG(t *testing.T, w, h int) domain.ImageBuffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return domain.ImageBuffer{Data: buf.Bytes(), MIME: "image/png"}
}

// fakeEditor records requests and replies with a canned result. When gate is
// set, Edit blocks until the gate is closed.
type fakeEditor struct {
	mu    sync.Mutex
	calls int
	last  domain.EditRequest
	out   domain.ImageBuffer
	err   error
	gate  chan struct{}
}

func (f *fakeEditor) Edit(ctx context.Context, base domain.ImageBuffer, req domain.EditRequest) (domain.ImageBuffer, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ImageBuffer{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.ImageBuffer{}, f.err
	}
	return f.out, nil
}

func (f *fakeEditor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEditor) lastRequest() domain.EditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type memStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, sessionID string, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sessionID] = append([]byte(nil), record...)
	return nil
}

func (m *memStore) Get(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[sessionID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return record, nil
}

func (m *memStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}

func (m *memStore) List(_ context.Context) ([]session.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]session.Entry, 0, len(m.records))
	for id, record := range m.records {
		entries = append(entries, session.Entry{SessionID: id, Bytes: len(record)})
	}
	return entries, nil
}

func testOptions() session.Options {
	return session.Options{Delay: time.Hour, Logger: zerolog.Nop()} // tests flush explicitly
}

func newTestSession(t *testing.T, ed *fakeEditor) *Session {
	t.Helper()
	s := newSession("test-session", ed, newMemStore(), testOptions(), zerolog.Nop(), nil)
	t.Cleanup(s.Close)
	return s
}

func TestSubmitCommitsResult(t *testing.T) {
	ed := &fakeEditor{out: testPNG(t, 4, 4)}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 8, 8)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "sepia tone"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.IsEmpty() {
		t.Fatal("expected a result image")
	}

	st := s.State()
	if st.HistoryLen != 2 || st.HistoryIndex != 1 {
		t.Fatalf("history len=%d index=%d, want 2/1", st.HistoryLen, st.HistoryIndex)
	}
	if st.Prompt != "sepia tone" {
		t.Fatalf("prompt = %q", st.Prompt)
	}
}

func TestSubmitRejectsWhilePending(t *testing.T) {
	gate := make(chan struct{})
	ed := &fakeEditor{out: testPNG(t, 4, 4), gate: gate}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 8, 8)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "warm"})
		done <- err
	}()

	// Wait for the first submission to reach the remote call.
	deadline := time.After(2 * time.Second)
	for ed.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first submission never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "cool"}); !errors.Is(err, domain.ErrEditPending) {
		t.Fatalf("second submit err = %v, want ErrEditPending", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if got := s.State().HistoryLen; got != 2 {
		t.Fatalf("history len = %d, want 2", got)
	}
}

func TestSubmitValidatesBeforeRemoteCall(t *testing.T) {
	ed := &fakeEditor{out: testPNG(t, 4, 4)}
	s := newTestSession(t, ed)

	cases := []struct {
		req  domain.EditRequest
		want error
	}{
		{domain.FilterRequest{}, domain.ErrMissingPrompt},
		{domain.RetouchRequest{Prompt: "remove blemish"}, domain.ErrMissingHotspot},
		{domain.TryOnGarmentRequest{Hotspot: &domain.Hotspot{X: 1, Y: 1}}, domain.ErrMissingGarment},
		{domain.StyleRequest{}, domain.ErrMissingReference},
		{domain.CropRequest{}, domain.ErrEmptyRegion},
	}
	for _, tc := range cases {
		if _, err := s.Submit(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%T: err = %v, want %v", tc.req, err, tc.want)
		}
	}
	if ed.callCount() != 0 {
		t.Fatalf("remote editor called %d times on invalid requests", ed.callCount())
	}

	if _, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "warm"}); !errors.Is(err, domain.ErrNoImageLoaded) {
		t.Fatalf("empty session err = %v, want ErrNoImageLoaded", err)
	}
}

func TestSubmitFailureLeavesHistoryAndIdles(t *testing.T) {
	ed := &fakeEditor{err: errors.New("model unavailable")}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 8, 8)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "warm"}); err == nil {
		t.Fatal("expected error from failing editor")
	}
	st := s.State()
	if st.HistoryLen != 1 || st.Pending {
		t.Fatalf("after failure: len=%d pending=%v, want 1/false", st.HistoryLen, st.Pending)
	}

	// The session is idle again, so a retry goes through.
	ed.err = nil
	ed.out = testPNG(t, 4, 4)
	if _, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "warm"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestStyleSeedPinnedPerReference(t *testing.T) {
	ed := &fakeEditor{out: testPNG(t, 4, 4)}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 8, 8)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	ref := testPNG(t, 3, 3)

	submitStyle := func(lock bool) *int64 {
		t.Helper()
		if _, err := s.Submit(context.Background(), domain.StyleRequest{Reference: ref, LockStyle: lock}); err != nil {
			t.Fatalf("submit style: %v", err)
		}
		return ed.lastRequest().(domain.StyleRequest).Seed
	}

	first := submitStyle(true)
	if first == nil {
		t.Fatal("locked request carried no seed")
	}
	second := submitStyle(true)
	if second == nil || *second != *first {
		t.Fatalf("seed not pinned: first=%v second=%v", first, second)
	}
	if !s.State().StyleLocked {
		t.Fatal("state should report a pinned style seed")
	}

	if seed := submitStyle(false); seed != nil {
		t.Fatalf("unlocked request carried seed %d", *seed)
	}

	// A new reference image drops the pin.
	ref = testPNG(t, 5, 5)
	if seed := submitStyle(false); seed != nil {
		t.Fatalf("new reference, unlocked: carried seed %d", *seed)
	}
	if s.State().StyleLocked {
		t.Fatal("pin should be dropped after the reference image changed")
	}
}

func TestCropResolvesLocally(t *testing.T) {
	ed := &fakeEditor{}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 10, 10)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, err := s.Submit(context.Background(), domain.CropRequest{
		Region: domain.Region{X: 2, Y: 2, Width: 4, Height: 4},
	})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if out.MIME != "image/png" {
		t.Fatalf("crop MIME = %q", out.MIME)
	}
	if ed.callCount() != 0 {
		t.Fatal("crop should not reach the remote editor")
	}
	if got := s.State().HistoryLen; got != 2 {
		t.Fatalf("history len = %d, want 2", got)
	}
}

func TestUploadStartsOver(t *testing.T) {
	ed := &fakeEditor{out: testPNG(t, 4, 4)}
	s := newTestSession(t, ed)
	if err := s.Upload(testPNG(t, 8, 8)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := s.Submit(context.Background(), domain.FilterRequest{Prompt: "warm"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := s.Upload(testPNG(t, 6, 6)); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	st := s.State()
	if st.HistoryLen != 1 || st.HistoryIndex != 0 {
		t.Fatalf("after re-upload: len=%d index=%d, want 1/0", st.HistoryLen, st.HistoryIndex)
	}

	if err := s.Upload(domain.ImageBuffer{Data: []byte("junk"), MIME: "image/png"}); !errors.Is(err, domain.ErrInvalidImage) {
		t.Fatalf("garbage upload err = %v, want ErrInvalidImage", err)
	}
}
