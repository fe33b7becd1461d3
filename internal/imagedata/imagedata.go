// Package imagedata converts between raw image bytes, base64 payloads and
// data URLs. Nothing here decodes pixels; payloads are treated as opaque.
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"
)

// DefaultMIME is assumed when a payload carries no data-URL header.
const DefaultMIME = "image/png"

const (
	dataPrefix   = "data:"
	base64Marker = "base64,"
)

var (
	ErrEmpty       = errors.New("empty image payload")
	ErrNotAnImage  = errors.New("file is not an image")
	ErrBadEncoding = errors.New("invalid base64 payload")
)

// Payload is a decoded-at-the-edges image: the MIME type plus the base64
// body exactly as it travels on the wire.
type Payload struct {
	MIME string
	Data string
}

// Parse splits a data URL into MIME and base64 body. Anything before
// "base64," is treated as the header; a bare base64 string is accepted and
// gets DefaultMIME.
func Parse(s string) (Payload, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{}, ErrEmpty
	}

	idx := strings.Index(s, base64Marker)
	if idx < 0 {
		return Payload{MIME: DefaultMIME, Data: s}, nil
	}

	header, data := s[:idx], s[idx+len(base64Marker):]
	if data == "" {
		return Payload{}, ErrEmpty
	}

	mt := strings.TrimSuffix(strings.TrimPrefix(header, dataPrefix), ";")
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	if mt == "" {
		mt = DefaultMIME
	}
	return Payload{MIME: mt, Data: data}, nil
}

// StripPrefix returns only the base64 body of s.
func StripPrefix(s string) string {
	if idx := strings.Index(s, base64Marker); idx >= 0 {
		return s[idx+len(base64Marker):]
	}
	return s
}

// DataURL renders p as "data:<mime>;base64,<data>".
func (p Payload) DataURL() string {
	mt := p.MIME
	if mt == "" {
		mt = DefaultMIME
	}
	return dataPrefix + mt + ";" + base64Marker + p.Data
}

// Bytes decodes the base64 body.
func (p Payload) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	return b, nil
}

// Extension picks a file extension for the payload's MIME type.
func (p Payload) Extension() string {
	switch p.MIME {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(p.MIME); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}

// FromBytes sniffs the content type of b and wraps it as a Payload.
func FromBytes(b []byte) (Payload, error) {
	if len(b) == 0 {
		return Payload{}, ErrEmpty
	}
	mt := http.DetectContentType(b)
	if !strings.HasPrefix(mt, "image/") {
		return Payload{}, fmt.Errorf("%w: %s", ErrNotAnImage, mt)
	}
	return Payload{MIME: mt, Data: base64.StdEncoding.EncodeToString(b)}, nil
}

// ReadFile loads an image from disk as a Payload.
func ReadFile(path string) (Payload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, err
	}
	return FromBytes(b)
}
