package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/imaging"
)

// editPayload is the wire form of an edit request: kind plus the fields the
// kind needs. Image inputs travel as base64 data URLs.
type editPayload struct {
	Kind      string          `json:"kind"`
	Prompt    string          `json:"prompt"`
	Hotspot   *domain.Hotspot `json:"hotspot,omitempty"`
	Garment   string          `json:"garment,omitempty"`
	Reference string          `json:"reference,omitempty"`
	LockStyle bool            `json:"lock_style,omitempty"`
	Region    *domain.Region  `json:"region,omitempty"`
}

func (p editPayload) toRequest() (domain.EditRequest, error) {
	switch domain.EditKind(p.Kind) {
	case domain.EditRetouch:
		return domain.RetouchRequest{Prompt: p.Prompt, Hotspot: p.Hotspot}, nil
	case domain.EditFilter:
		return domain.FilterRequest{Prompt: p.Prompt}, nil
	case domain.EditAdjustment:
		return domain.AdjustmentRequest{Prompt: p.Prompt}, nil
	case domain.EditTryOn:
		if p.Garment != "" {
			garment, err := imaging.DecodeDataURL(p.Garment)
			if err != nil {
				return nil, err
			}
			return domain.TryOnGarmentRequest{Garment: garment, Hotspot: p.Hotspot}, nil
		}
		return domain.TryOnPromptRequest{Prompt: p.Prompt, Hotspot: p.Hotspot}, nil
	case domain.EditStyle:
		var reference domain.ImageBuffer
		if p.Reference != "" {
			var err error
			reference, err = imaging.DecodeDataURL(p.Reference)
			if err != nil {
				return nil, err
			}
		}
		return domain.StyleRequest{Reference: reference, Prompt: p.Prompt, LockStyle: p.LockStyle}, nil
	case domain.EditCrop:
		region := domain.Region{}
		if p.Region != nil {
			region = *p.Region
		}
		return domain.CropRequest{Region: region}, nil
	default:
		return nil, fmt.Errorf("unknown edit kind %q", p.Kind)
	}
}

type editResponse struct {
	Image string `json:"image"`
	State any    `json:"state"`
}

// SubmitEdit runs one edit against the session's current image. A second
// submission while one is pending is rejected with a conflict, never queued.
func (a *App) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	s, err := a.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	var payload editPayload
	if !a.decode(w, r, &payload) {
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidImage) {
			a.fail(w, err)
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, editResponse{Image: imaging.EncodeDataURL(out), State: s.State()})
}
