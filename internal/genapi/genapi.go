// Package genapi holds the JSON bodies of the image generation HTTP API,
// shared by the server handlers and the client.
package genapi

import "fmt"

// PathPrefix is the route prefix; the feature name is the last segment.
const PathPrefix = "/api/generate/"

// Path returns the endpoint path for a feature.
func Path(feature string) string {
	return PathPrefix + feature
}

// Request is the body of POST /api/generate/{feature}. Image is omitted
// for text-to-image generation.
type Request struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
}

// Response is returned with 200 OK.
type Response struct {
	ResultImage string `json:"resultImage"`
}

// ErrorResponse accompanies every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Common error texts.
const (
	ErrTextNoImage       = "No image generated in the response"
	ErrTextQuotaExceeded = "quota exceeded"
	ErrTextInvalidBody   = "invalid request body"
)

func (e ErrorResponse) String() string {
	if e.Details == "" {
		return e.Error
	}
	return fmt.Sprintf("%s: %s", e.Error, e.Details)
}
