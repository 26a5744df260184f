// Package editor orchestrates edit requests against a session's history:
// it guards preconditions, drives the single in-flight request state
// machine, and commits successful results.
package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/history"
	"server/internal/imaging"
	provimage "server/internal/providers/image"
	"server/internal/session"
)

// Session owns one user's edit history and the state around it: the
// last-used prompt, the active tab, the transient hotspot selection and the
// pinned style seed. At most one edit request is in flight per session; a
// submission while another is pending is rejected, never queued.
type Session struct {
	ID string

	mu        sync.Mutex
	pending   bool
	prompt    string
	activeTab string
	hotspot   *domain.Hotspot
	styleSeed *int64
	styleRef  string

	hist   *history.History
	saver  *session.Autosaver
	editor provimage.Editor
	logger zerolog.Logger
}

// State is a read-only view of a session for transports.
type State struct {
	SessionID    string          `json:"session_id"`
	HistoryLen   int             `json:"history_len"`
	HistoryIndex int             `json:"history_index"`
	CanUndo      bool            `json:"can_undo"`
	CanRedo      bool            `json:"can_redo"`
	Pending      bool            `json:"pending"`
	Prompt       string          `json:"prompt"`
	ActiveTab    string          `json:"active_tab"`
	Hotspot      *domain.Hotspot `json:"hotspot,omitempty"`
	StyleLocked  bool            `json:"style_locked"`
}

func newSession(id string, ed provimage.Editor, store session.Store, opts session.Options, logger zerolog.Logger, restored *session.Restored) *Session {
	s := &Session{
		ID:     id,
		hist:   history.New(),
		editor: ed,
		logger: logger.With().Str("session_id", id).Logger(),
	}

	// Rebuild history before wiring the autosaver so restoring does not
	// immediately write back the snapshot it was built from.
	if restored != nil && len(restored.Entries) > 0 {
		_ = s.hist.Load(restored.Entries[0])
		for _, entry := range restored.Entries[1:] {
			_ = s.hist.Commit(entry)
		}
		_ = s.hist.JumpTo(restored.Index)
		s.prompt = restored.Prompt
		s.activeTab = restored.ActiveTab
		s.logger.Info().Int("entries", len(restored.Entries)).Int("index", restored.Index).Msg("session restored from snapshot")
	}

	s.saver = session.NewAutosaver(id, store, s.snapshotState, opts)
	s.hist.SetOnChange(s.saver.Notify)
	return s
}

// snapshotState is the autosaver's view of the session at save time.
func (s *Session) snapshotState() session.State {
	s.mu.Lock()
	prompt, tab := s.prompt, s.activeTab
	s.mu.Unlock()
	return session.State{
		Entries:   s.hist.Entries(),
		Index:     s.hist.Index(),
		Prompt:    prompt,
		ActiveTab: tab,
	}
}

// Submit runs one edit request through the Idle -> Pending -> Idle machine.
// It rejects before any remote call when preconditions fail or another
// request is pending. On success the result is committed to history and the
// transient hotspot selection is cleared; on failure history is untouched
// and the error is returned for display, leaving the session idle so the
// user can retry.
func (s *Session) Submit(ctx context.Context, req domain.EditRequest) (domain.ImageBuffer, error) {
	if err := req.Validate(); err != nil {
		return domain.ImageBuffer{}, err
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return domain.ImageBuffer{}, domain.ErrEditPending
	}
	base, ok := s.hist.Current()
	if !ok {
		s.mu.Unlock()
		return domain.ImageBuffer{}, domain.ErrNoImageLoaded
	}
	effective := s.prepareLocked(req)
	s.pending = true
	s.mu.Unlock()

	out, err := s.perform(ctx, base, effective)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("kind", string(req.Kind())).Msg("edit failed")
		return domain.ImageBuffer{}, err
	}
	if cerr := s.hist.Commit(out); cerr != nil {
		s.mu.Unlock()
		return domain.ImageBuffer{}, cerr
	}
	s.hotspot = nil
	s.mu.Unlock()

	s.logger.Info().Str("kind", string(req.Kind())).Int("bytes", out.Size()).Msg("edit committed")
	return out, nil
}

// prepareLocked records transient request state and resolves the style seed.
// Callers hold s.mu.
func (s *Session) prepareLocked(req domain.EditRequest) domain.EditRequest {
	switch r := req.(type) {
	case domain.RetouchRequest:
		s.prompt = r.Prompt
		s.hotspot = r.Hotspot
	case domain.FilterRequest:
		s.prompt = r.Prompt
	case domain.AdjustmentRequest:
		s.prompt = r.Prompt
	case domain.TryOnPromptRequest:
		s.prompt = r.Prompt
		s.hotspot = r.Hotspot
	case domain.TryOnGarmentRequest:
		s.hotspot = r.Hotspot
	case domain.StyleRequest:
		if r.Prompt != "" {
			s.prompt = r.Prompt
		}
		// A new reference image always invalidates the pinned seed so the
		// next locked request rolls fresh randomness.
		refHash := hashBytes(r.Reference.Data)
		if refHash != s.styleRef {
			s.styleRef = refHash
			s.styleSeed = nil
		}
		if r.LockStyle {
			if s.styleSeed == nil {
				seed := int64(rand.Uint32())
				s.styleSeed = &seed
			}
			r.Seed = s.styleSeed
		} else {
			r.Seed = nil
		}
		return r
	}
	return req
}

// perform resolves the request: crops locally, everything else remotely.
func (s *Session) perform(ctx context.Context, base domain.ImageBuffer, req domain.EditRequest) (domain.ImageBuffer, error) {
	if crop, ok := req.(domain.CropRequest); ok {
		return imaging.CropRegion(base, crop.Region)
	}
	return s.editor.Edit(ctx, base, req)
}

// Upload loads a new original image, starting the history over.
func (s *Session) Upload(buf domain.ImageBuffer) error {
	if _, _, err := imaging.Dimensions(buf); err != nil {
		return err
	}
	s.mu.Lock()
	s.hotspot = nil
	s.mu.Unlock()
	return s.hist.Load(buf)
}

// Undo moves one step back, reporting whether the cursor moved.
func (s *Session) Undo() bool { return s.hist.Undo() }

// Redo moves one step forward, reporting whether the cursor moved.
func (s *Session) Redo() bool { return s.hist.Redo() }

// Reset jumps the cursor back to the original without discarding edits.
func (s *Session) Reset() { s.hist.Reset() }

// JumpTo moves the cursor directly to a history index.
func (s *Session) JumpTo(index int) error { return s.hist.JumpTo(index) }

// Clear empties the session's history.
func (s *Session) Clear() {
	s.mu.Lock()
	s.hotspot = nil
	s.prompt = ""
	s.mu.Unlock()
	s.hist.Clear()
}

// Current returns the image the cursor points at.
func (s *Session) Current() (domain.ImageBuffer, bool) { return s.hist.Current() }

// Original returns the unedited upload.
func (s *Session) Original() (domain.ImageBuffer, bool) { return s.hist.Original() }

// At returns the history entry at index.
func (s *Session) At(index int) (domain.ImageBuffer, error) { return s.hist.At(index) }

// SetActiveTab records the active edit mode and schedules a save.
func (s *Session) SetActiveTab(tab string) {
	s.mu.Lock()
	changed := s.activeTab != tab
	s.activeTab = tab
	s.mu.Unlock()
	if changed {
		s.saver.Notify()
	}
}

// State returns a transport-friendly view of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID:    s.ID,
		HistoryLen:   s.hist.Len(),
		HistoryIndex: s.hist.Index(),
		CanUndo:      s.hist.CanUndo(),
		CanRedo:      s.hist.CanRedo(),
		Pending:      s.pending,
		Prompt:       s.prompt,
		ActiveTab:    s.activeTab,
		Hotspot:      s.hotspot,
		StyleLocked:  s.styleSeed != nil,
	}
}

// Flush forces a synchronous snapshot save.
func (s *Session) Flush() { s.saver.Flush() }

// Close stops the session's autosaver.
func (s *Session) Close() { s.saver.Close() }

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
