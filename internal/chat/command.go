package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMarker invokes the assistant when it appears as a standalone word.
const DefaultMarker = "@ai"

// ExtractPrompt finds the first standalone occurrence of marker in text and
// returns the text without it, trimmed. Matching is case-sensitive; the marker
// must be preceded by start-of-text or whitespace and followed by whitespace or
// end-of-text, so "mail@ai.com" does not match.
func ExtractPrompt(text, marker string) (prompt string, found bool) {
	if marker == "" {
		return "", false
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], marker)
		if idx < 0 {
			return "", false
		}
		start := offset + idx
		end := start + len(marker)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			rest := strings.TrimRightFunc(text[:start], unicode.IsSpace) + " " + strings.TrimLeftFunc(text[end:], unicode.IsSpace)
			return strings.TrimSpace(rest), true
		}
		offset = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsSpace(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}
