package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/imaging"
	"server/pkg/zip"
)

// UploadImage loads a new original into the session, starting its history
// over. The body carries the image as a base64 data URL.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	var body struct {
		Image string `json:"image"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	buf, err := imaging.DecodeDataURL(body.Image)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := s.Upload(buf); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, s.State())
}

// GetImage streams a history entry: ?at=current (default), ?at=original, or
// a numeric index.
func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	var (
		buf domain.ImageBuffer
		ok  bool
	)
	switch at := r.URL.Query().Get("at"); at {
	case "", "current":
		buf, ok = s.Current()
		if !ok {
			a.fail(w, domain.ErrNoImageLoaded)
			return
		}
	case "original":
		buf, ok = s.Original()
		if !ok {
			a.fail(w, domain.ErrNoImageLoaded)
			return
		}
	default:
		index, convErr := strconv.Atoi(at)
		if convErr != nil {
			a.error(w, http.StatusBadRequest, "invalid_request", "at must be current, original or a history index")
			return
		}
		buf, err = s.At(index)
		if err != nil {
			a.fail(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", buf.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Size()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Data)
}

// ExportSession downloads a zip holding the original upload and the image
// the cursor currently points at.
func (a *App) ExportSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	original, ok := s.Original()
	if !ok {
		a.fail(w, domain.ErrNoImageLoaded)
		return
	}
	current, _ := s.Current()

	assets := []zip.Asset{
		{Filename: "original" + zip.ExtensionFor(original.MIME), Data: original.Data},
	}
	if !current.IsEmpty() {
		assets = append(assets, zip.Asset{Filename: "edited" + zip.ExtensionFor(current.MIME), Data: current.Data})
	}
	archive, err := zip.Archive(assets)
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="session-`+s.ID+`.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
