package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) Undo(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	s.Undo()
	a.json(w, http.StatusOK, s.State())
}

func (a *App) Redo(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	s.Redo()
	a.json(w, http.StatusOK, s.State())
}

// ResetHistory jumps back to the original image; the edit trail stays so
// redo can walk forward again.
func (a *App) ResetHistory(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	s.Reset()
	a.json(w, http.StatusOK, s.State())
}

// JumpHistory moves the cursor directly to a history index.
func (a *App) JumpHistory(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		Index int `json:"index"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := s.JumpTo(body.Index); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, s.State())
}

// ClearHistory discards the session's image and every edit, leaving it
// empty as on first visit.
func (a *App) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	s.Clear()
	a.json(w, http.StatusOK, s.State())
}
