package publish

import (
	"encoding/base64"
	"strings"
)

// PNGMediaType is the media type of exported surfaces.
const PNGMediaType = "image/png"

// ImageData is a validated base64 data URI of a raster image.
type ImageData struct {
	uri       string
	mediaType string
	payload   string
}

// ParseImageData validates a "data:image/...;base64,..." string. An empty
// string is ErrMissingImageData; anything else that does not decode is
// ErrInvalidImageData.
func ParseImageData(s string) (ImageData, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ImageData{}, ErrMissingImageData
	}

	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return ImageData{}, ErrInvalidImageData
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || payload == "" {
		return ImageData{}, ErrInvalidImageData
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if !strings.HasPrefix(mediaType, "image/") || encoding != "base64" {
		return ImageData{}, ErrInvalidImageData
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return ImageData{}, newError(ErrInvalidImageData, err)
	}

	return ImageData{uri: s, mediaType: mediaType, payload: payload}, nil
}

// String returns the full data URI.
func (d ImageData) String() string { return d.uri }

// MediaType returns the declared media type, e.g. image/png.
func (d ImageData) MediaType() string { return d.mediaType }

// Bytes decodes the image payload.
func (d ImageData) Bytes() []byte {
	raw, _ := base64.StdEncoding.DecodeString(d.payload)
	return raw
}

// Filename is the attachment name used for the image.
func (d ImageData) Filename() string {
	ext := strings.TrimPrefix(d.mediaType, "image/")
	if ext == "" || strings.ContainsAny(ext, "/+ ") {
		ext = "img"
	}
	return "waveform." + ext
}
