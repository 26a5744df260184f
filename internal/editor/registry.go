package editor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	provimage "server/internal/providers/image"
	"server/internal/session"
)

// Registry keeps live sessions keyed by id and lazily revives ones that
// only exist as snapshots in the store.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store  session.Store
	editor provimage.Editor
	opts   session.Options
	logger zerolog.Logger
}

func NewRegistry(store session.Store, editor provimage.Editor, opts session.Options, logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		editor:   editor,
		opts:     opts,
		logger:   logger,
	}
}

// Create starts a fresh session with a new id.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := newSession(id, r.editor, r.store, r.opts, r.logger, nil)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// Open returns the live session for id, reviving it from the snapshot
// store when needed. An id with no stored snapshot opens as a cold, empty
// session so a returning client always gets something usable back.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrSessionNotFound
	}

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	// Restore outside the registry lock: store reads can be slow and must
	// not block unrelated sessions.
	restored := session.Restore(ctx, r.store, id, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		// Lost the race to another revival; keep the first one.
		return s, nil
	}
	s := newSession(id, r.editor, r.store, r.opts, r.logger, restored)
	r.sessions[id] = s
	return s, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll flushes every live session's snapshot and stops its autosaver.
// Used on shutdown so pending debounced saves are not lost.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range live {
		s.Flush()
		s.Close()
	}
}
