package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"server/internal/domain"
)

// CropRegion trims a buffer to the given region. The region is clamped to
// the image bounds; a region that falls entirely outside them is rejected.
// The result is PNG-encoded so repeated crops stay lossless.
func CropRegion(buf domain.ImageBuffer, region domain.Region) (domain.ImageBuffer, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return domain.ImageBuffer{}, domain.ErrEmptyRegion
	}

	src, _, err := image.Decode(bytes.NewReader(buf.Data))
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("decode source: %w", domain.ErrInvalidImage)
	}

	want := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	rect := want.Intersect(src.Bounds())
	if rect.Empty() {
		return domain.ImageBuffer{}, domain.ErrEmptyRegion
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("encode crop: %w", err)
	}
	return domain.ImageBuffer{Data: out.Bytes(), MIME: "image/png"}, nil
}
