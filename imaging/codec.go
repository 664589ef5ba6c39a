// Package imaging implements the image codec boundary: decoding and
// validating client-supplied base64 payloads, encoding results, resizing,
// and persisting generated images to the static output root.
//
// Decoders registered: PNG and JPEG from the standard library, WebP from
// golang.org/x/image. Output encoding is always PNG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	"image/png"
	"strings"

	_ "golang.org/x/image/webp" // WebP decoder (decode only)

	"flux_backend/core"
)

// Formats accepted for input images.
var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// DecodedImage is an owned, in-memory image decoded from a client payload.
// Ownership passes to the caller; a DecodedImage is never shared across
// concurrent requests.
type DecodedImage struct {
	Image  image.Image
	Format string // Declared source format: "jpeg", "png" or "webp"
	Width  int
	Height int
}

// Decode parses a base64-encoded image payload.
//
// The optional data-URL prefix ("data:image/png;base64,...") is stripped.
// The byte ceiling is enforced before any image parsing so oversized
// payloads are rejected cheaply. The payload must decode as a structurally
// valid image in one of the whitelisted formats.
//
// Failure modes: core.ErrImageTooLarge when the decoded payload exceeds
// maxBytes, core.ErrInvalidImageFormat for everything else.
func Decode(payload string, maxBytes int64) (*DecodedImage, error) {
	if strings.HasPrefix(payload, "data:image") {
		idx := strings.IndexByte(payload, ',')
		if idx < 0 {
			return nil, core.ErrInvalidImageFormat("malformed data URL: missing comma separator")
		}
		payload = payload[idx+1:]
	}

	// Cheap pre-check: base64 expands by 4/3, so a payload longer than
	// maxBytes*4/3 cannot decode under the ceiling.
	if int64(len(payload)) > (maxBytes*4)/3+4 {
		return nil, core.ErrImageTooLarge(int64(len(payload))*3/4, maxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, core.ErrInvalidImageFormat("payload is not valid base64: %v", err)
	}

	if int64(len(raw)) > maxBytes {
		return nil, core.ErrImageTooLarge(int64(len(raw)), maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, core.ErrInvalidImageFormat("failed to decode image: %v", err)
	}

	if !allowedFormats[format] {
		return nil, core.ErrInvalidImageFormat("unsupported image format: %s", format)
	}

	bounds := img.Bounds()
	return &DecodedImage{
		Image:  img,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// ValidateDimensions checks that both image dimensions lie within [min, max].
func ValidateDimensions(d *DecodedImage, min, max int) error {
	if d.Width < min || d.Height < min {
		return core.ErrInvalidImageFormat(
			"image size %dx%d is too small, minimum is %dx%d", d.Width, d.Height, min, min)
	}
	if d.Width > max || d.Height > max {
		return core.ErrInvalidImageFormat(
			"image size %dx%d is too large, maximum is %dx%d", d.Width, d.Height, max, max)
	}
	return nil
}

// EncodeBase64 encodes an image as base64 PNG for inline responses.
func EncodeBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("imaging: failed to encode PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
