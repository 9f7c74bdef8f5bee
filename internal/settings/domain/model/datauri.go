package model

import (
	"encoding/base64"
	"fmt"
	"strings"

	"product-studio/internal/shared/errors"
)

// DefaultMimeType is used when an upload carries no declared content type
const DefaultMimeType = "application/octet-stream"

const dataURIPrefix = "data:"

// DataURI is a self-describing inline resource: data:<mime>;base64,<payload>
type DataURI struct {
	MimeType string
	Data     []byte
}

// NewDataURI wraps raw bytes with their declared MIME type
func NewDataURI(mimeType string, data []byte) DataURI {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return DataURI{MimeType: mimeType, Data: data}
}

// String encodes the URI. The whole payload is held in memory.
func (d DataURI) String() string {
	var b strings.Builder
	b.Grow(len(dataURIPrefix) + len(d.MimeType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(d.Data)))
	b.WriteString(dataURIPrefix)
	b.WriteString(d.MimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(d.Data))
	return b.String()
}

// IsDataURI reports whether a model reference is an inline payload rather than a locator
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, dataURIPrefix)
}

// ParseDataURI decodes a base64 data URI produced by String
func ParseDataURI(s string) (DataURI, error) {
	if !IsDataURI(s) {
		return DataURI{}, fmt.Errorf("%w: missing data: scheme", errors.ErrInvalidDataURI)
	}
	header, payload, ok := strings.Cut(s[len(dataURIPrefix):], ",")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: missing payload separator", errors.ErrInvalidDataURI)
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: only base64 payloads are supported", errors.ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", errors.ErrInvalidDataURI, err)
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return DataURI{MimeType: mimeType, Data: data}, nil
}
