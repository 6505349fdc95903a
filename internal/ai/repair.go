package ai

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// repairJSON makes near-JSON model output parseable. It drops markdown fences
// and surrounding prose, strips comments and trailing commas, and escapes raw
// control characters inside string literals.
// The result is not guaranteed to be valid JSON.
func repairJSON(raw string) []byte {
	text := stripFences(strings.TrimSpace(raw))

	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		text = text[start : end+1]
	}

	return escapeControlChars(jsonc.ToJSON([]byte(text)))
}

// stripFences removes a ```json ... ``` wrapper.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// escapeControlChars escapes bytes below 0x20 that appear inside JSON strings.
func escapeControlChars(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	inString, escaped := false, false
	for _, c := range data {
		switch {
		case !inString:
			if c == '"' {
				inString = true
			}
			out.WriteByte(c)
		case escaped:
			escaped = false
			out.WriteByte(c)
		case c == '\\':
			escaped = true
			out.WriteByte(c)
		case c == '"':
			inString = false
			out.WriteByte(c)
		case c < 0x20:
			switch c {
			case '\n':
				out.WriteString(`\n`)
			case '\r':
				out.WriteString(`\r`)
			case '\t':
				out.WriteString(`\t`)
			default:
				fmt.Fprintf(&out, `\u%04x`, c)
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
