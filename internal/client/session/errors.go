package session

import (
	"errors"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
)

var (
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrMissingSourceImage = errors.New("no source image uploaded")
	ErrEmptyImage         = errors.New("uploaded image is empty")

	// ErrSuperseded is returned by Submit when a newer command replaced the
	// edit before the response arrived. The response is discarded.
	ErrSuperseded = errors.New("edit superseded by a newer request")
)

// validationMessage is the toast shown for a rejected command.
func validationMessage(err error, f feature.Feature) string {
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		return "Please describe the change you want first."
	case errors.Is(err, ErrMissingSourceImage):
		return "Upload an image before using " + f.Label() + "."
	case errors.Is(err, ErrEmptyImage):
		return "The uploaded image is empty."
	case errors.Is(err, feature.ErrUnknownFeature):
		return "Unknown feature \"" + f.String() + "\"."
	default:
		return err.Error()
	}
}
