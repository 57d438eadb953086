// Package imagenorm decodes provider/cache bytes, rejects images that are
// too small to be useful, resizes down (never up) to a target width, and
// re-encodes as JPEG for storage.
package imagenorm

import (
	"fmt"

	"github.com/cshum/vipsgen/vips"
)

const (
	// MinAcceptablePx is the smallest dimension (either axis) a decoded
	// image may have before it's rejected outright as unusable.
	MinAcceptablePx = 50

	// NoUpscaleThresholdPx: images whose width is at or below this are
	// stored at their original size. Normalize never upscales, so every
	// width up to TargetWidthPx is kept as-is and this value is not
	// consulted by Normalize.
	NoUpscaleThresholdPx = 300

	// TargetWidthPx is the width wider covers are resized down to.
	TargetWidthPx = 800

	// JPEGQuality is the re-encode quality for normalized covers.
	JPEGQuality = 85
)

// Result is a normalized image ready for storage.
type Result struct {
	Bytes  []byte
	Width  int
	Height int
}

// ContentRejectFunc inspects a decoded image and reports whether it
// should be rejected despite passing the dimension checks (e.g. a
// perceptual "blank tile" detector). Optional; nil disables the check.
type ContentRejectFunc func(data []byte, width, height int) bool

// Normalizer turns arbitrary downloaded image bytes into a canonical
// stored representation.
type Normalizer struct {
	// ContentReject, if set, runs after dimension validation and before
	// resize; returning true rejects the image with ErrContentRejected.
	ContentReject ContentRejectFunc
}

// New returns a Normalizer with no content-rejection hook.
func New() *Normalizer {
	return &Normalizer{}
}

// ErrTooSmall is returned when either image dimension is below
// MinAcceptablePx.
type ErrTooSmall struct{ Width, Height int }

func (e ErrTooSmall) Error() string {
	return fmt.Sprintf("image too small: %dx%d (min %dpx)", e.Width, e.Height, MinAcceptablePx)
}

// ErrContentRejected is returned when the ContentReject hook vetoes an
// otherwise dimensionally valid image.
type ErrContentRejected struct{ Width, Height int }

func (e ErrContentRejected) Error() string {
	return fmt.Sprintf("image content rejected: %dx%d", e.Width, e.Height)
}

// Normalize decodes raw, validates its dimensions, optionally resizes it
// down to TargetWidthPx, and re-encodes it as JPEG.
func (n *Normalizer) Normalize(raw []byte) (Result, error) {
	img, err := vips.NewImageFromBuffer(raw, &vips.LoadOptions{
		Autorotate: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("imagenorm: decode: %w", err)
	}
	defer img.Close()

	width, height := img.Width(), img.Height()
	if width < MinAcceptablePx || height < MinAcceptablePx {
		return Result{}, ErrTooSmall{Width: width, Height: height}
	}

	if n.ContentReject != nil && n.ContentReject(raw, width, height) {
		return Result{}, ErrContentRejected{Width: width, Height: height}
	}

	if width > TargetWidthPx {
		scale := float64(TargetWidthPx) / float64(width)
		if err := img.Resize(scale, &vips.ResizeOptions{}); err != nil {
			return Result{}, fmt.Errorf("imagenorm: resize: %w", err)
		}
		width, height = img.Width(), img.Height()
	}

	encoded, err := img.JpegsaveBuffer(&vips.JpegsaveBufferOptions{Q: JPEGQuality})
	if err != nil {
		return Result{}, fmt.Errorf("imagenorm: encode: %w", err)
	}

	return Result{Bytes: encoded, Width: width, Height: height}, nil
}
