package image

import (
	"fmt"
	"strings"
)

// Instruction builders translate each edit kind into natural-language
// guidance for the image model. Every builder pins down what must NOT
// change, since the history model depends on edits being targeted.

// RetouchInstruction describes a localized edit anchored at a pixel hotspot.
func RetouchInstruction(prompt string, x, y int) string {
	var lines []string
	lines = append(lines,
		"Perform a natural, localized edit on the provided photograph.",
		fmt.Sprintf("Focus the edit on the area around pixel coordinates (%d, %d).", x, y),
		fmt.Sprintf("User request: %s.", strings.TrimSpace(prompt)),
		"Blend the edit seamlessly with the surrounding area.",
		"The rest of the image must remain identical to the input.")
	return strings.Join(lines, "\n")
}

// FilterInstruction applies a stylistic filter across the whole image.
func FilterInstruction(prompt string) string {
	var lines []string
	lines = append(lines,
		"Apply a stylistic filter to the entire provided photograph.",
		fmt.Sprintf("Filter request: %s.", strings.TrimSpace(prompt)),
		"Do not change the composition or the content, only apply the style.")
	return strings.Join(lines, "\n")
}

// AdjustmentInstruction applies a global photographic adjustment.
func AdjustmentInstruction(prompt string) string {
	var lines []string
	lines = append(lines,
		"Perform a natural, global adjustment to the entire provided photograph.",
		fmt.Sprintf("Adjustment request: %s.", strings.TrimSpace(prompt)),
		"The result must be photorealistic and keep the original composition.")
	return strings.Join(lines, "\n")
}

// TryOnPromptInstruction dresses the subject in a described garment.
func TryOnPromptInstruction(prompt string, x, y int) string {
	var lines []string
	lines = append(lines,
		"Edit the provided photograph so the person is wearing the described garment.",
		fmt.Sprintf("Garment description: %s.", strings.TrimSpace(prompt)),
		fmt.Sprintf("The garment placement is anchored near pixel coordinates (%d, %d).", x, y),
		"Fit the garment naturally to the person's pose and lighting.",
		"Keep the person's face, body and the background identical to the input.")
	return strings.Join(lines, "\n")
}

// TryOnGarmentInstruction dresses the subject in the garment from the second
// image.
func TryOnGarmentInstruction(x, y int) string {
	var lines []string
	lines = append(lines,
		"The first image is a photograph of a person; the second image shows a garment.",
		"Edit the first image so the person is wearing the garment from the second image.",
		fmt.Sprintf("The garment placement is anchored near pixel coordinates (%d, %d).", x, y),
		"Match the garment's colors, patterns and materials faithfully.",
		"Keep the person's face, body and the background identical to the input.")
	return strings.Join(lines, "\n")
}

// StyleInstruction re-renders the first image in the style of the second.
func StyleInstruction(prompt string) string {
	var lines []string
	lines = append(lines,
		"The first image is the photograph to edit; the second image is a style reference.",
		"Re-render the first image in the visual style of the reference: colors, lighting, texture and mood.",
		"Preserve the subject and composition of the first image.")
	if p := strings.TrimSpace(prompt); p != "" {
		lines = append(lines, fmt.Sprintf("Additional guidance: %s.", p))
	}
	return strings.Join(lines, "\n")
}
