package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/imaging"
)

const (
	// DefaultSaveDelay is the debounce quiet period between a history
	// change and the save it triggers.
	DefaultSaveDelay = 1500 * time.Millisecond
	// DefaultWindow is the number of most-recent history entries kept in a
	// snapshot.
	DefaultWindow = 5

	saveTimeout = 10 * time.Second
)

// State is the view of a session the autosaver persists: the live history
// entries and cursor plus the workflow state carried alongside them.
type State struct {
	Entries   []domain.ImageBuffer
	Index     int
	Prompt    string
	ActiveTab string
}

// Options tunes an Autosaver.
type Options struct {
	Delay            time.Duration
	Window           int
	ThumbnailDim     int
	ThumbnailQuality int
	Logger           zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Delay <= 0 {
		o.Delay = DefaultSaveDelay
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.ThumbnailDim <= 0 {
		o.ThumbnailDim = imaging.DefaultThumbnailDim
	}
	if o.ThumbnailQuality <= 0 {
		o.ThumbnailQuality = imaging.DefaultThumbnailQuality
	}
	return o
}

// Autosaver debounces snapshot saves for one session. Notify (re)starts a
// fixed-delay timer; only the most recent pending timer performs a save, so
// a burst of history changes collapses into a single write. Saves are
// best-effort: every failure is logged and swallowed.
type Autosaver struct {
	sessionID string
	store     Store
	source    func() State
	opts      Options
	logger    zerolog.Logger

	mu     sync.Mutex // guards timer and closed
	timer  *time.Timer
	closed bool

	saveMu sync.Mutex // serializes actual saves
}

// NewAutosaver wires a debounced saver for the given session. source is
// called at save time to observe the latest state.
func NewAutosaver(sessionID string, store Store, source func() State, opts Options) *Autosaver {
	opts = opts.withDefaults()
	return &Autosaver{
		sessionID: sessionID,
		store:     store,
		source:    source,
		opts:      opts,
		logger:    opts.Logger.With().Str("session_id", sessionID).Logger(),
	}
}

// Notify signals that the session changed. The pending save timer, if any,
// is superseded; the save runs once the quiet period elapses.
func (a *Autosaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.opts.Delay, a.save)
}

// Flush cancels any pending timer and saves synchronously. Used on graceful
// shutdown and in tests.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.save()
}

// Close stops the autosaver. No new saves start after Close returns; a save
// already in flight is allowed to finish.
func (a *Autosaver) Close() {
	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
}

// save builds and writes the snapshot record. It never returns an error:
// persistence is a best-effort subsystem and must not disturb editing.
func (a *Autosaver) save() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	st := a.source()
	if len(st.Entries) == 0 {
		// Empty history means a cleared session: drop the record rather
		// than writing an empty one.
		if err := a.store.Delete(ctx, a.sessionID); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
			a.logger.Warn().Err(err).Msg("autosave: failed to delete snapshot for empty history")
		}
		return
	}

	snap, err := BuildSnapshot(st, a.opts.Window, a.opts.ThumbnailDim, a.opts.ThumbnailQuality)
	if err != nil {
		a.logger.Warn().Err(err).Msg("autosave: failed to build snapshot")
		return
	}
	record, err := snap.Encode()
	if err != nil {
		a.logger.Warn().Err(err).Msg("autosave: failed to encode snapshot")
		return
	}

	if err := a.store.Put(ctx, a.sessionID, record); err != nil {
		a.logger.Warn().Err(err).Int("record_bytes", len(record)).Msg("autosave: failed to write snapshot")
		if errors.Is(err, domain.ErrQuotaExceeded) {
			// Prefer losing autosave over leaving a stale record that no
			// longer matches the session.
			if derr := a.store.Delete(ctx, a.sessionID); derr != nil && !errors.Is(derr, domain.ErrSnapshotNotFound) {
				a.logger.Warn().Err(derr).Msg("autosave: failed to clear snapshot after quota failure")
			}
		}
		return
	}

	a.logger.Debug().
		Int("entries", len(snap.History)).
		Int("index", snap.HistoryIndex).
		Int("record_bytes", len(record)).
		Msg("autosave: snapshot written")
}

// BuildSnapshot projects live state into a persisted snapshot: the last
// `window` entries compressed to thumbnails, with the cursor remapped into
// the retained window and floored at zero.
func BuildSnapshot(st State, window, thumbDim, thumbQuality int) (*Snapshot, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	entries := st.Entries
	truncated := 0
	if len(entries) > window {
		truncated = len(entries) - window
		entries = entries[truncated:]
	}

	index := st.Index - truncated
	if index < 0 {
		index = 0
	}
	if index > len(entries)-1 {
		index = len(entries) - 1
	}

	thumbs := make([]string, 0, len(entries))
	for _, entry := range entries {
		thumb, err := imaging.Thumbnail(entry, thumbDim, thumbQuality)
		if err != nil {
			return nil, err
		}
		thumbs = append(thumbs, imaging.EncodeDataURL(thumb))
	}

	return &Snapshot{
		History:      thumbs,
		HistoryIndex: index,
		Prompt:       st.Prompt,
		ActiveTab:    st.ActiveTab,
	}, nil
}

// Restored carries a successfully decoded snapshot back into live form.
type Restored struct {
	Entries   []domain.ImageBuffer
	Index     int
	Prompt    string
	ActiveTab string
}

// Restore reads and decodes the persisted snapshot for a session. A missing,
// unparseable or undecodable record yields nil (cold start); restore
// problems are logged, never surfaced.
func Restore(ctx context.Context, store Store, sessionID string, logger zerolog.Logger) *Restored {
	record, err := store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("restore: failed to read snapshot")
		}
		return nil
	}

	snap, err := DecodeSnapshot(record)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("restore: corrupt snapshot record, starting cold")
		return nil
	}
	if len(snap.History) == 0 {
		return nil
	}

	entries := make([]domain.ImageBuffer, 0, len(snap.History))
	for _, encoded := range snap.History {
		buf, err := imaging.DecodeDataURL(encoded)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("restore: corrupt thumbnail in snapshot, starting cold")
			return nil
		}
		entries = append(entries, buf)
	}

	index := snap.HistoryIndex
	if index < 0 {
		index = 0
	}
	if index > len(entries)-1 {
		index = len(entries) - 1
	}

	return &Restored{
		Entries:   entries,
		Index:     index,
		Prompt:    snap.Prompt,
		ActiveTab: snap.ActiveTab,
	}
}
