// Package history holds the authoritative in-memory model of what the user
// has done to an image: an ordered sequence of immutable buffers plus a
// cursor, with linear undo semantics (a new commit discards the redo branch).
package history

import (
	"sync"

	"server/internal/domain"
)

// History is an append/branch-truncate ordered sequence of image buffers
// with a current-position cursor. entries[0] is always the original upload
// while the sequence is non-empty. All methods are safe for concurrent use;
// Commit is atomic with respect to observers, so no caller ever sees a
// truncated-but-not-yet-appended state.
type History struct {
	mu       sync.Mutex
	entries  []domain.ImageBuffer
	current  int // -1 when empty
	onChange func()
}

// New returns an empty history.
func New() *History {
	return &History{current: -1}
}

// SetOnChange registers a hook invoked after every successful mutation. It
// fires outside the internal lock, so the hook may read the history freely.
func (h *History) SetOnChange(fn func()) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Load resets the sequence to the single original upload.
func (h *History) Load(initial domain.ImageBuffer) error {
	if initial.IsEmpty() {
		return domain.ErrInvalidImage
	}
	h.mu.Lock()
	h.entries = []domain.ImageBuffer{initial}
	h.current = 0
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
	return nil
}

// Commit truncates everything after the cursor, appends next and moves the
// cursor onto it. This is the only mutation path for new edits; it enforces
// the discard-redo-on-new-edit rule.
func (h *History) Commit(next domain.ImageBuffer) error {
	if next.IsEmpty() {
		return domain.ErrInvalidImage
	}
	h.mu.Lock()
	if h.current < 0 {
		h.mu.Unlock()
		return domain.ErrEmptyHistory
	}
	h.entries = append(h.entries[:h.current+1], next)
	h.current = len(h.entries) - 1
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
	return nil
}

// Undo moves the cursor one step back. It reports whether the cursor moved;
// at the original it is a silent no-op.
func (h *History) Undo() bool {
	h.mu.Lock()
	if h.current <= 0 {
		h.mu.Unlock()
		return false
	}
	h.current--
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
	return true
}

// Redo moves the cursor one step forward, reporting whether it moved.
func (h *History) Redo() bool {
	h.mu.Lock()
	if h.current < 0 || h.current == len(h.entries)-1 {
		h.mu.Unlock()
		return false
	}
	h.current++
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
	return true
}

// JumpTo moves the cursor directly to index (the history scrubber).
func (h *History) JumpTo(index int) error {
	h.mu.Lock()
	if index < 0 || index >= len(h.entries) {
		h.mu.Unlock()
		return domain.ErrInvalidIndex
	}
	moved := index != h.current
	h.current = index
	fn := h.onChange
	h.mu.Unlock()
	if moved {
		notify(fn)
	}
	return nil
}

// Reset returns the cursor to the original without discarding later edits.
func (h *History) Reset() {
	h.mu.Lock()
	if h.current <= 0 {
		h.mu.Unlock()
		return
	}
	h.current = 0
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
}

// Clear empties the sequence entirely.
func (h *History) Clear() {
	h.mu.Lock()
	if h.current < 0 && len(h.entries) == 0 {
		h.mu.Unlock()
		return
	}
	h.entries = nil
	h.current = -1
	fn := h.onChange
	h.mu.Unlock()
	notify(fn)
}

// Current returns the buffer the cursor points at, or false when empty.
func (h *History) Current() (domain.ImageBuffer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current < 0 {
		return domain.ImageBuffer{}, false
	}
	return h.entries[h.current], true
}

// Original returns the first entry (the unedited upload), or false when
// empty.
func (h *History) Original() (domain.ImageBuffer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return domain.ImageBuffer{}, false
	}
	return h.entries[0], true
}

// At returns the entry at index.
func (h *History) At(index int) (domain.ImageBuffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.entries) {
		return domain.ImageBuffer{}, domain.ErrInvalidIndex
	}
	return h.entries[index], nil
}

// Index returns the cursor position, -1 when empty.
func (h *History) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// CanUndo reports whether an undo step is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current > 0
}

// CanRedo reports whether a redo step is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current >= 0 && h.current < len(h.entries)-1
}

// Entries returns a snapshot copy of the sequence. The buffers themselves
// are immutable, so sharing them is safe.
func (h *History) Entries() []domain.ImageBuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.ImageBuffer, len(h.entries))
	copy(out, h.entries)
	return out
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
