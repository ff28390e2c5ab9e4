package response

import (
	"bytes"
	"strings"
)

// headerDelimiter separates the header block from the body in a raw payload.
var headerDelimiter = []byte("\r\n\r\n")

// Headers is the case-insensitive view over response header lines.
// Keys are stored lower-cased.
type Headers map[string]string

// Get returns the value for name, ignoring case.
func (h Headers) Get(name string) (string, bool) {
	v, ok := h[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// ParseHeaderLine splits a header line at its first colon. The value may
// itself contain colons. ok is false for lines without a colon or with an
// empty name.
func ParseHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(line[idx+1:]), true
}

// FormatHeaders builds Headers from raw header lines. Status lines and other
// lines without a colon are discarded; a later duplicate overrides an
// earlier one.
func FormatHeaders(lines []string) Headers {
	formatted := make(Headers, len(lines))
	for _, line := range lines {
		name, value, ok := ParseHeaderLine(line)
		if !ok {
			continue
		}
		formatted[strings.ToLower(name)] = value
	}
	return formatted
}

// SplitHeaderBlock separates a raw payload into header lines and body at the
// first blank line. Without a delimiter the whole payload is the body.
func SplitHeaderBlock(payload []byte) ([]string, []byte) {
	idx := bytes.Index(payload, headerDelimiter)
	if idx < 0 {
		return nil, payload
	}
	return SplitHeaderLines(string(payload[:idx])), payload[idx+len(headerDelimiter):]
}

// SplitHeaderLines splits a header block on line feeds, trimming carriage
// returns. Empty lines are dropped.
func SplitHeaderLines(block string) []string {
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
