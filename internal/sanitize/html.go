package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	// Use for fields that should only contain plain text (names, grounds, cities).
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows safe user-generated content with basic formatting.
	// Use for tournament descriptions.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML tags and surrounding whitespace.
func Text(input string) string {
	return strings.TrimSpace(StrictPolicy.Sanitize(input))
}

// HTML sanitizes HTML content, allowing safe formatting tags.
// Removes: <script>, <iframe>, onclick handlers, style attributes.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}

// TextSlice sanitizes each string in a slice, removing all HTML. Entries
// that end up empty are dropped.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	sanitized := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if clean := Text(input); clean != "" {
			sanitized = append(sanitized, clean)
		}
	}
	return sanitized
}

// Texts sanitizes every non-nil field in place.
func Texts(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = Text(*f)
		}
	}
}
