// Package generation is the client side of the image generation API:
// request shaping per feature and an HTTP transport.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/genapi"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
)

var (
	// ErrMissingResult is returned for a 2xx response without resultImage.
	ErrMissingResult = errors.New("response has no result image")
	// ErrTransport wraps network-level failures.
	ErrTransport = errors.New("generation service unreachable")
)

// ServiceError is a non-success response from the generation service.
type ServiceError struct {
	StatusCode int
	Reason     string
	Details    string
}

func (e *ServiceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("generation service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("generation service returned %d: %s", e.StatusCode, e.Reason)
}

// Service produces a result image (data URL) for a request.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// maxErrorBody bounds how much of a failure body is read.
const maxErrorBody = 64 << 10

type HTTPService struct {
	baseURL string
	client  *http.Client
	log     logging.Logger
}

// NewHTTPService targets baseURL, e.g. "http://127.0.0.1:8080". A zero
// timeout leaves the transport default in place.
func NewHTTPService(baseURL string, timeout time.Duration, log logging.Logger) *HTTPService {
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With("module", "generation"),
	}
}

var _ Service = (*HTTPService)(nil)

func (s *HTTPService) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req.Body())
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := s.baseURL + genapi.Path(req.Feature.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	s.log.Debug(ctx, "generation response", "feature", req.Feature, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeServiceError(resp)
	}

	var out genapi.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingResult, err)
	}
	if strings.TrimSpace(out.ResultImage) == "" {
		return "", ErrMissingResult
	}
	return out.ResultImage, nil
}

func decodeServiceError(resp *http.Response) error {
	se := &ServiceError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body genapi.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		se.Reason = body.Error
		se.Details = body.Details
		return se
	}
	se.Reason = strings.TrimSpace(string(data))
	return se
}

// Reason extracts the most specific human-readable cause from err, or ""
// when the error carries none.
func Reason(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		if se.Reason != "" {
			return se.Reason
		}
		return http.StatusText(se.StatusCode)
	}
	return ""
}
