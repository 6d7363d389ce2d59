// Package extract slices marker-delimited sections out of raw completion
// text. Models are instructed to answer with bolded section markers; this is
// the forgiving parser that turns that free text back into fields.
package extract

import (
	"fmt"
	"strings"
)

// Sections returns, for each marker, the substring between its first
// occurrence and the next marker in the list (or the end of text). A marker
// that does not occur maps to the empty string; extraction never fails.
// Values are trimmed of surrounding whitespace.
func Sections(text string, markers []string) map[string]string {
	sections := make(map[string]string, len(markers))
	for i, marker := range markers {
		next := ""
		if i+1 < len(markers) {
			next = markers[i+1]
		}
		sections[marker] = section(text, marker, next)
	}
	return sections
}

// SectionsAny is Sections for values of unknown type. Upstream failures can
// hand the pipeline something other than a string; rather than fail, the
// value is string-formatted and parsed as usual.
func SectionsAny(v any, markers []string) map[string]string {
	text, ok := v.(string)
	if !ok {
		text = fmt.Sprint(v)
	}
	return Sections(text, markers)
}

// section extracts the text after startMarker up to endMarker. An empty
// endMarker, or one that never occurs after the start, extends the section to
// the end of text.
func section(text, startMarker, endMarker string) string {
	start := strings.Index(text, startMarker)
	if start == -1 {
		return ""
	}
	start += len(startMarker)

	if endMarker != "" {
		if end := strings.Index(text[start:], endMarker); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	return strings.TrimSpace(text[start:])
}
