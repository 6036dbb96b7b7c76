package model

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dataURIScheme    = "data:"
	defaultMediaType = "image/jpeg"
)

// EncodedImage is a parsed data URI of the form data:<mime>;base64,<payload>.
// The payload is always read as base64, with or without the ;base64 marker.
type EncodedImage struct {
	// DeclaredType is the media type written in the URI header.
	DeclaredType string
	// MediaType is what gets sent upstream: the sniffed type when the bytes
	// are a recognizable image, otherwise DeclaredType.
	MediaType string
	Base64    string
	Data      []byte
}

// ParseEncodedImage validates raw and decodes its payload. minBytes is the
// minimum decoded length; shorter payloads are rejected.
func ParseEncodedImage(raw string, minBytes int) (*EncodedImage, error) {
	if !strings.HasPrefix(raw, dataURIScheme) {
		return nil, ErrInvalidImageFormat
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected one comma, found %d", ErrInvalidImageData, len(parts)-1)
	}

	header := strings.TrimPrefix(parts[0], dataURIScheme)
	params := strings.Split(header, ";")
	declared := strings.ToLower(strings.TrimSpace(params[0]))
	if declared == "" {
		declared = defaultMediaType
	}
	if !strings.HasPrefix(declared, "image/") {
		return nil, fmt.Errorf("%w: media type %q is not an image", ErrInvalidImageFormat, declared)
	}

	payload := strings.TrimSpace(parts[1])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}
	if len(data) < minBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooSmall, len(data))
	}

	img := &EncodedImage{
		DeclaredType: declared,
		MediaType:    declared,
		Base64:       payload,
		Data:         data,
	}
	if sniffed := mimetype.Detect(data); strings.HasPrefix(sniffed.String(), "image/") {
		img.MediaType = sniffed.String()
	}
	return img, nil
}

// DataURI rebuilds the URI with the resolved media type.
func (e *EncodedImage) DataURI() string {
	return dataURIScheme + e.MediaType + ";base64," + e.Base64
}
