package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"server/internal/domain"
)

const (
	// DefaultThumbnailDim bounds the longest side of persisted thumbnails.
	DefaultThumbnailDim = 640
	// DefaultThumbnailQuality is the JPEG quality used for persisted
	// thumbnails. Snapshots trade fidelity for bounded storage.
	DefaultThumbnailQuality = 70
)

// Thumbnail produces a bounded-size, lossy-encoded preview of an image
// buffer. The longest side is scaled down to at most maxDim (never up) and
// the result is always JPEG regardless of the source format.
func Thumbnail(buf domain.ImageBuffer, maxDim, quality int) (domain.ImageBuffer, error) {
	if maxDim <= 0 {
		maxDim = DefaultThumbnailDim
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}

	src, _, err := image.Decode(bytes.NewReader(buf.Data))
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("decode source: %w", domain.ErrInvalidImage)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := fitWithin(w, h, maxDim)

	// JPEG has no alpha channel, so render onto an opaque RGBA canvas even
	// when no scaling is needed.
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return domain.ImageBuffer{Data: out.Bytes(), MIME: "image/jpeg"}, nil
}

// fitWithin scales (w, h) so the longest side is at most maxDim, preserving
// aspect ratio and never upscaling.
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		scaled := h * maxDim / w
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := w * maxDim / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}
