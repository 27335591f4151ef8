// Package imaging validates incoming camera frames before they reach the
// detector: the payload must be a decodable image and neither side may
// exceed the configured bound.
package imaging

import (
	"bytes"
	"fmt"
	"image"

	// Registered decoders for the frame formats clients send.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"stepwise/internal/services"
)

// DefaultMaxDimension is the largest width or height accepted by default.
const DefaultMaxDimension = 640

// Info describes a validated frame.
type Info struct {
	Format string
	Width  int
	Height int
}

// Validator checks frame payloads against a dimension bound.
type Validator struct {
	MaxDimension int
}

// NewValidator returns a Validator. A non-positive bound uses the default.
func NewValidator(maxDimension int) Validator {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return Validator{MaxDimension: maxDimension}
}

// Inspect decodes only the image header and enforces the bound.
func (v Validator) Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, services.Wrap(services.ErrInvalidInputFormat, "imaging", "decode", "empty payload", nil)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, services.Wrap(services.ErrInvalidInputFormat, "imaging", "decode", "unrecognised image", err)
	}
	info := Info{Format: format, Width: cfg.Width, Height: cfg.Height}
	if err := v.CheckDimensions(cfg.Width, cfg.Height); err != nil {
		return info, err
	}
	return info, nil
}

// Validate is Inspect without the header details.
func (v Validator) Validate(data []byte) error {
	_, err := v.Inspect(data)
	return err
}

// CheckDimensions enforces the bound for frames whose size is reported
// out of band, such as raw camera buffers.
func (v Validator) CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return services.Wrap(services.ErrInvalidInputFormat, "imaging", "dimensions",
			fmt.Sprintf("invalid size %dx%d", width, height), nil)
	}
	limit := v.MaxDimension
	if limit <= 0 {
		limit = DefaultMaxDimension
	}
	if max(width, height) > limit {
		return services.Wrap(services.ErrImageTooLarge, "imaging", "dimensions",
			fmt.Sprintf("%dx%d exceeds %d", width, height, limit), nil)
	}
	return nil
}
