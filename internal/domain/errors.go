package domain

import "errors"

var (
	ErrNoImageLoaded    = errors.New("no image loaded")
	ErrMissingPrompt    = errors.New("edit prompt is required")
	ErrMissingHotspot   = errors.New("select a point on the image first")
	ErrMissingGarment   = errors.New("garment image is required")
	ErrMissingReference = errors.New("style reference image is required")
	ErrEmptyRegion      = errors.New("crop region is empty")
	ErrEditPending      = errors.New("another edit is already in progress")
	ErrEmptyHistory     = errors.New("history is empty")
	ErrInvalidIndex     = errors.New("history index out of range")
	ErrInvalidImage     = errors.New("invalid image data")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSessionNotFound  = errors.New("session not found")
)
