// Package providers declares what the generation API needs from an image
// model backend, and the failures it distinguishes.
package providers

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
)

var (
	// ErrQuotaExceeded means the backend throttled the request.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNoImage means the backend answered without any image part.
	ErrNoImage = errors.New("no image in response")
	// ErrUpstream covers every other backend failure.
	ErrUpstream = errors.New("image provider failure")
)

// ImageProvider produces one image from a prompt and, for edits, a source
// image. image is nil for text-to-image generation.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string, image *imagedata.Payload) (imagedata.Payload, error)
}
