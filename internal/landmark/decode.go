package landmark

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Registered decoders for camera frames.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MaxImageBytes bounds the decoded payload of a single frame.
	MaxImageBytes = 5 << 20
	// MaxImageSide bounds either dimension of a frame before full decoding.
	MaxImageSide = 4096
)

var (
	ErrEmptyImage    = errors.New("no image data provided")
	ErrImageTooLarge = errors.New("image too large")
	ErrBadEncoding   = errors.New("image is not valid base64")
)

// DecodeDataURI decodes a camera frame sent as a data URI such as
// "data:image/jpeg;base64,...". A bare base64 payload is accepted too.
// The returned format is the name of the decoder that matched.
func DecodeDataURI(uri string) (image.Image, string, error) {
	payload := strings.TrimSpace(uri)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data uri: %w", ErrBadEncoding)
		}
		if !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, "", fmt.Errorf("data uri is not base64 encoded: %w", ErrBadEncoding)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, "", ErrEmptyImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
	}
	return DecodeImage(raw)
}

// DecodeImage decodes raw image bytes after checking the frame dimensions.
func DecodeImage(raw []byte) (image.Image, string, error) {
	if len(raw) == 0 {
		return nil, "", ErrEmptyImage
	}
	if len(raw) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
