// Package response decodes raw response payloads according to a declared
// content type and formats response header lines into a lookup map.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ContentType is the declared format of a response body.
type ContentType string

const (
	// ContentTypeText returns the body unchanged.
	ContentTypeText ContentType = "plain/text"

	// ContentTypeJSON decodes the body as a single JSON value.
	ContentTypeJSON ContentType = "application/json"
)

// UnsupportedContentTypeError is returned when a declared content type is not
// one of the recognized formats.
type UnsupportedContentTypeError struct {
	Declared string
}

// Error implements the error interface.
func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("unsupported expected response format %q", e.Declared)
}

// ParseContentType resolves a configured content type string. The historical
// spellings "text/plain" and "json" are accepted as aliases.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ContentTypeText), "text/plain":
		return ContentTypeText, nil
	case string(ContentTypeJSON), "json":
		return ContentTypeJSON, nil
	default:
		return "", &UnsupportedContentTypeError{Declared: s}
	}
}

// Kind tags which variant of Parsed is populated.
type Kind int

const (
	// KindNone means no value is available.
	KindNone Kind = iota
	// KindText means Text holds the body.
	KindText
	// KindJSON means JSON holds the decoded value.
	KindJSON
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	default:
		return "none"
	}
}

// Parsed is the decoded representation of a response body.
type Parsed struct {
	Kind Kind
	Text string
	JSON any
}

// None is the empty parse result.
var None = Parsed{}

// IsNone reports whether no value is available.
func (p Parsed) IsNone() bool {
	return p.Kind == KindNone
}

// Object returns the JSON value as an object, if it is one.
func (p Parsed) Object() (map[string]any, bool) {
	if p.Kind != KindJSON {
		return nil, false
	}
	obj, ok := p.JSON.(map[string]any)
	return obj, ok
}

// Value returns the populated variant as an untyped value, or nil for None.
func (p Parsed) Value() any {
	switch p.Kind {
	case KindText:
		return p.Text
	case KindJSON:
		return p.JSON
	default:
		return nil
	}
}

// Parse decodes raw according to ct. Exactly one strategy is attempted;
// malformed JSON and unrecognized content types yield None.
func Parse(raw []byte, ct ContentType) Parsed {
	switch ct {
	case ContentTypeText:
		return Parsed{Kind: KindText, Text: string(raw)}
	case ContentTypeJSON:
		v, ok := decodeJSON(raw)
		if !ok {
			return None
		}
		return Parsed{Kind: KindJSON, JSON: v}
	default:
		return None
	}
}

// decodeJSON decodes raw as exactly one JSON value. Numbers are kept as
// json.Number so large integer IDs survive unchanged.
func decodeJSON(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, false
	}
	return v, true
}
