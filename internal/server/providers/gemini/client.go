// Package gemini calls the Google Generative Language API
// (models/{model}:generateContent) for image generation and editing.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/server/providers"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image-preview"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 << 10
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logging.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        logging.Logger
}

var _ providers.ImageProvider = (*Client)(nil)

// NewClient fills unset options with defaults. A nil HTTPClient gets one
// with opts.Timeout.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: hc,
		log:        log.With("module", "gemini"),
	}
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateImage sends the prompt as a text part followed, when image is
// set, by the image as an inline part. The first inline part of the answer
// is returned.
func (c *Client) GenerateImage(ctx context.Context, prompt string, image *imagedata.Payload) (imagedata.Payload, error) {
	parts := []part{{Text: prompt}}
	if image != nil {
		mt := image.MIME
		if mt == "" {
			mt = imagedata.DefaultMIME
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mt,
			Data:     imagedata.StripPrefix(image.Data),
		}})
	}

	var resp generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
	if err := c.invoke(ctx, path, generateContentRequest{Contents: []content{{Role: "user", Parts: parts}}}, &resp); err != nil {
		return imagedata.Payload{}, err
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				mt := p.InlineData.MimeType
				if mt == "" {
					mt = imagedata.DefaultMIME
				}
				return imagedata.Payload{MIME: mt, Data: p.InlineData.Data}, nil
			}
		}
	}

	c.log.Warn(ctx, "response without image", "model", c.model, "candidates", len(resp.Candidates))
	return imagedata.Payload{}, providers.ErrNoImage
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", providers.ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "gemini call finished", "model", c.model, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", providers.ErrUpstream, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(data))
	var apiErr errorResponse
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	kind := providers.ErrUpstream
	if resp.StatusCode == http.StatusTooManyRequests || apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
		kind = providers.ErrQuotaExceeded
	}
	if msg == "" {
		return fmt.Errorf("%w: gemini status %d", kind, resp.StatusCode)
	}
	return fmt.Errorf("%w: gemini status %d: %s", kind, resp.StatusCode, msg)
}
