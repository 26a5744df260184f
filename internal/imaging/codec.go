package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"server/internal/domain"
)

// EncodeDataURL renders a buffer as a base64 data URL, the portable text
// encoding used for persisted snapshots and the HTTP surface.
func EncodeDataURL(buf domain.ImageBuffer) string {
	if buf.IsEmpty() {
		return ""
	}
	mime := buf.MIME
	if mime == "" {
		mime = Sniff(buf.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Data)
}

// DecodeDataURL parses a base64 data URL back into an ImageBuffer. Malformed
// input is a hard validation failure wrapping domain.ErrInvalidImage.
func DecodeDataURL(s string) (domain.ImageBuffer, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return domain.ImageBuffer{}, fmt.Errorf("missing data: prefix: %w", domain.ErrInvalidImage)
	}
	rest := s[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return domain.ImageBuffer{}, fmt.Errorf("missing base64 marker: %w", domain.ErrInvalidImage)
	}
	mime := strings.TrimSpace(rest[:sep])
	payload := rest[sep+len(";base64,"):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("decode base64: %w", domain.ErrInvalidImage)
	}
	if len(data) == 0 {
		return domain.ImageBuffer{}, fmt.Errorf("empty payload: %w", domain.ErrInvalidImage)
	}
	if mime == "" {
		mime = Sniff(data)
	}
	return domain.ImageBuffer{Data: data, MIME: mime}, nil
}

// Sniff detects the MIME type of raw image bytes.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// Dimensions decodes just the image header and returns width and height.
// It is the cheap validity check applied to every buffer that crosses a
// trust boundary (uploads, provider responses, restored thumbnails).
func Dimensions(buf domain.ImageBuffer) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", domain.ErrInvalidImage)
	}
	return cfg.Width, cfg.Height, nil
}
