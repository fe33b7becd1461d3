package generation

import (
	"strings"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/genapi"
)

// Request is one feature-shaped call to the generation service.
type Request struct {
	Feature feature.Feature
	Prompt  string
	// Image is a data URL; empty for text-to-image.
	Image string
}

// Body is the JSON body sent for r.
func (r Request) Body() genapi.Request {
	return genapi.Request{Prompt: r.Prompt, Image: r.Image}
}

// BuildRequest shapes the payload for f. Inputs are assumed validated;
// the only substitution is the default prompt for restore.
func BuildRequest(f feature.Feature, prompt, image string) (Request, error) {
	prompt = strings.TrimSpace(prompt)

	switch f {
	case feature.Generate:
		return buildGenerate(prompt), nil
	case feature.Edit:
		return buildEdit(prompt, image), nil
	case feature.Restore:
		return buildRestore(prompt, image), nil
	default:
		return Request{}, f.Validate()
	}
}

func buildGenerate(prompt string) Request {
	return Request{Feature: feature.Generate, Prompt: prompt}
}

func buildEdit(prompt, image string) Request {
	return Request{Feature: feature.Edit, Prompt: prompt, Image: image}
}

func buildRestore(prompt, image string) Request {
	if prompt == "" {
		prompt = feature.DefaultRestorePrompt
	}
	return Request{Feature: feature.Restore, Prompt: prompt, Image: image}
}
