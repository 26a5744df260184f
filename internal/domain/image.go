package domain

// ImageBuffer is an immutable binary image together with its MIME type.
// Every edit produces a new buffer; no component mutates one in place, so
// buffers can be shared freely between history slots and in-flight requests.
type ImageBuffer struct {
	Data []byte
	MIME string
}

// IsEmpty reports whether the buffer holds no image bytes.
func (b ImageBuffer) IsEmpty() bool {
	return len(b.Data) == 0
}

// Size returns the number of raw image bytes.
func (b ImageBuffer) Size() int {
	return len(b.Data)
}
