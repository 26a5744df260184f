package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateSession starts a fresh editing session and returns its state.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := a.Sessions.Create()
	a.json(w, http.StatusCreated, s.State())
}

// GetSession returns the session's state, reviving it from its snapshot
// when the server restarted since the last save.
func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, s.State())
}

// SetActiveTab records which edit mode the client is on so it survives a
// reload.
func (a *App) SetActiveTab(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		Tab string `json:"tab"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	s.SetActiveTab(body.Tab)
	a.json(w, http.StatusOK, s.State())
}
