package domain

import "strings"

// EditKind enumerates the supported edit operations.
type EditKind string

const (
	EditRetouch    EditKind = "retouch"
	EditFilter     EditKind = "filter"
	EditAdjustment EditKind = "adjustment"
	EditTryOn      EditKind = "tryon"
	EditStyle      EditKind = "style"
	EditCrop       EditKind = "crop"
)

// Hotspot is a single coordinate in source-image pixel space marking where a
// localized edit should focus.
type Hotspot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is a rectangular area in source-image pixel space.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EditRequest is the closed set of edit operations the orchestrator accepts.
// Each variant carries exactly the inputs its generation call needs and knows
// how to check its own preconditions, so missing-input failures are rejected
// before any remote call with a message specific to what is missing.
type EditRequest interface {
	Kind() EditKind
	Validate() error
	editRequest()
}

// RetouchRequest is a localized generative edit anchored at a hotspot.
type RetouchRequest struct {
	Prompt  string
	Hotspot *Hotspot
}

func (RetouchRequest) Kind() EditKind { return EditRetouch }
func (RetouchRequest) editRequest()   {}

func (r RetouchRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrMissingPrompt
	}
	if r.Hotspot == nil {
		return ErrMissingHotspot
	}
	return nil
}

// FilterRequest applies a stylistic filter across the whole image.
type FilterRequest struct {
	Prompt string
}

func (FilterRequest) Kind() EditKind { return EditFilter }
func (FilterRequest) editRequest()   {}

func (r FilterRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrMissingPrompt
	}
	return nil
}

// AdjustmentRequest applies a global photographic adjustment.
type AdjustmentRequest struct {
	Prompt string
}

func (AdjustmentRequest) Kind() EditKind { return EditAdjustment }
func (AdjustmentRequest) editRequest()   {}

func (r AdjustmentRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrMissingPrompt
	}
	return nil
}

// TryOnPromptRequest places a described garment onto the subject at the
// hotspot.
type TryOnPromptRequest struct {
	Prompt  string
	Hotspot *Hotspot
}

func (TryOnPromptRequest) Kind() EditKind { return EditTryOn }
func (TryOnPromptRequest) editRequest()   {}

func (r TryOnPromptRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrMissingPrompt
	}
	if r.Hotspot == nil {
		return ErrMissingHotspot
	}
	return nil
}

// TryOnGarmentRequest places a garment from a reference photo onto the
// subject at the hotspot.
type TryOnGarmentRequest struct {
	Garment ImageBuffer
	Hotspot *Hotspot
}

func (TryOnGarmentRequest) Kind() EditKind { return EditTryOn }
func (TryOnGarmentRequest) editRequest()   {}

func (r TryOnGarmentRequest) Validate() error {
	if r.Garment.IsEmpty() {
		return ErrMissingGarment
	}
	if r.Hotspot == nil {
		return ErrMissingHotspot
	}
	return nil
}

// StyleRequest re-renders the image in the style of a reference image. Seed,
// when set, pins the generation for repeatable output; the orchestrator
// manages it and callers engage it through LockStyle.
type StyleRequest struct {
	Reference ImageBuffer
	Prompt    string
	Seed      *int64
	LockStyle bool
}

func (StyleRequest) Kind() EditKind { return EditStyle }
func (StyleRequest) editRequest()   {}

func (r StyleRequest) Validate() error {
	if r.Reference.IsEmpty() {
		return ErrMissingReference
	}
	return nil
}

// CropRequest trims the image to a region. It is resolved locally and never
// reaches the generation provider.
type CropRequest struct {
	Region Region
}

func (CropRequest) Kind() EditKind { return EditCrop }
func (CropRequest) editRequest()   {}

func (r CropRequest) Validate() error {
	if r.Region.Width <= 0 || r.Region.Height <= 0 {
		return ErrEmptyRegion
	}
	return nil
}
