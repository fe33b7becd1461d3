// Package feature defines the closed set of transformation modes.
package feature

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownFeature is returned for any value outside the closed set.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature selects request shaping, labels and default prompts.
type Feature string

const (
	Edit     Feature = "edit"
	Generate Feature = "generate"
	Restore  Feature = "restore"
)

// DefaultRestorePrompt is sent when a restore is submitted without a prompt.
const DefaultRestorePrompt = "Restore this old photo: remove scratches, dust and noise, " +
	"repair fading and color casts, and sharpen details while keeping the original composition and faces."

// All lists every feature in display order.
func All() []Feature {
	return []Feature{Edit, Generate, Restore}
}

// Parse accepts a feature name in any case.
func Parse(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate reports whether f belongs to the closed set.
func (f Feature) Validate() error {
	switch f {
	case Edit, Generate, Restore:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFeature, string(f))
	}
}

// RequiresImage reports whether the feature needs a source image.
func (f Feature) RequiresImage() bool {
	switch f {
	case Edit, Restore:
		return true
	default:
		return false
	}
}

// AllowsEmptyPrompt is true only for features that have a default prompt.
func (f Feature) AllowsEmptyPrompt() bool {
	return f == Restore
}

func (f Feature) String() string {
	return string(f)
}

// Label is the human-facing name, e.g. "Restore".
func (f Feature) Label() string {
	// Casers keep state, so one per call.
	return cases.Title(language.English).String(string(f))
}

func (f Feature) verb() string {
	switch f {
	case Edit:
		return "generate image"
	case Generate:
		return "generate image from text"
	case Restore:
		return "restore photo"
	default:
		return "process image"
	}
}

// SuccessMessage is the toast shown after a completed transformation.
func (f Feature) SuccessMessage() string {
	switch f {
	case Generate:
		return "✨ Image generated from your prompt!"
	case Restore:
		return "✨ Photo restored!"
	default:
		return "✨ AI transformation complete!"
	}
}

// FailureMessage is the generic toast for a failure with no reported reason.
func (f Feature) FailureMessage() string {
	return "Failed to " + f.verb() + ". Please try again."
}

// ReasonMessage wraps a reason reported by the generation service.
func (f Feature) ReasonMessage(reason string) string {
	label := f.Label()
	if f.Validate() != nil {
		label = "Request"
	}
	return label + " failed: " + reason
}
