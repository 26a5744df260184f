// Package image adapts domain edit requests onto the generation provider.
package image

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/imaging"
	"server/internal/providers/genai"
)

// Editor is the contract the orchestrator calls for generative edits: one
// request in, one new image (or a terminal failure) out.
type Editor interface {
	Edit(ctx context.Context, base domain.ImageBuffer, req domain.EditRequest) (domain.ImageBuffer, error)
}

// GeminiEditor translates each edit kind into a Gemini image-editing call.
type GeminiEditor struct {
	client *genai.Client
	logger zerolog.Logger
}

// NewGeminiEditor wraps a configured genai client.
func NewGeminiEditor(client *genai.Client, logger zerolog.Logger) *GeminiEditor {
	return &GeminiEditor{client: client, logger: logger}
}

// Edit builds the instruction and image inputs for the request kind, invokes
// the model and validates the returned buffer. Crop requests never reach the
// provider; the orchestrator resolves them locally.
func (e *GeminiEditor) Edit(ctx context.Context, base domain.ImageBuffer, req domain.EditRequest) (domain.ImageBuffer, error) {
	call := genai.EditRequest{Images: []domain.ImageBuffer{base}}

	switch r := req.(type) {
	case domain.RetouchRequest:
		call.Instruction = RetouchInstruction(r.Prompt, r.Hotspot.X, r.Hotspot.Y)
	case domain.FilterRequest:
		call.Instruction = FilterInstruction(r.Prompt)
	case domain.AdjustmentRequest:
		call.Instruction = AdjustmentInstruction(r.Prompt)
	case domain.TryOnPromptRequest:
		call.Instruction = TryOnPromptInstruction(r.Prompt, r.Hotspot.X, r.Hotspot.Y)
	case domain.TryOnGarmentRequest:
		call.Instruction = TryOnGarmentInstruction(r.Hotspot.X, r.Hotspot.Y)
		call.Images = append(call.Images, r.Garment)
	case domain.StyleRequest:
		call.Instruction = StyleInstruction(r.Prompt)
		call.Images = append(call.Images, r.Reference)
		call.Seed = r.Seed
	default:
		return domain.ImageBuffer{}, fmt.Errorf("unsupported edit kind %q", req.Kind())
	}

	out, err := e.client.EditImage(ctx, call)
	if err != nil {
		return domain.ImageBuffer{}, err
	}
	if _, _, err := imaging.Dimensions(out); err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("provider returned undecodable image: %w", err)
	}
	return out, nil
}

var _ Editor = (*GeminiEditor)(nil)
