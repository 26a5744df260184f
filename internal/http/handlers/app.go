package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/editor"
	"server/internal/providers/genai"
)

type App struct {
	Sessions *editor.Registry
	Logger   zerolog.Logger
}

func NewApp(sessions *editor.Registry, logger zerolog.Logger) *App {
	return &App{Sessions: sessions, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

// fail maps domain and provider errors onto HTTP statuses: validation and
// precondition failures are the client's to fix, a pending edit is a
// conflict, and provider failures surface as a bad gateway with the
// user-facing message intact.
func (a *App) fail(w http.ResponseWriter, err error) {
	var blocked *genai.BlockedError
	var abnormal *genai.AbnormalStopError
	var noImage *genai.NoImageError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		a.error(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, domain.ErrSnapshotNotFound):
		a.error(w, http.StatusNotFound, "snapshot_not_found", err.Error())
	case errors.Is(err, domain.ErrEditPending):
		a.error(w, http.StatusConflict, "edit_pending", err.Error())
	case errors.Is(err, domain.ErrNoImageLoaded),
		errors.Is(err, domain.ErrMissingPrompt),
		errors.Is(err, domain.ErrMissingHotspot),
		errors.Is(err, domain.ErrMissingGarment),
		errors.Is(err, domain.ErrMissingReference),
		errors.Is(err, domain.ErrEmptyRegion),
		errors.Is(err, domain.ErrEmptyHistory),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidImage):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &blocked):
		a.error(w, http.StatusBadGateway, "request_blocked", blocked.Error())
	case errors.As(err, &abnormal):
		a.error(w, http.StatusBadGateway, "generation_stopped", abnormal.Error())
	case errors.As(err, &noImage):
		a.error(w, http.StatusBadGateway, "no_image_returned", noImage.Error())
	default:
		a.Logger.Error().Err(err).Msg("unhandled request error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}
