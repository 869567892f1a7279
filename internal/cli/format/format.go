// Package format provides CLI output formatting with TTY detection.
package format

import (
	"bytes"
	"regexp"

	"github.com/alecthomas/chroma/v2/quick"
)

// maxHighlightSize caps how much document text we run through the
// highlighter; anything larger is shown plain.
const maxHighlightSize = 2 * 1024 * 1024

// ansiEscapeRegex matches ANSI escape sequences for sanitization.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// sanitizeANSI removes ANSI escape sequences from a string.
func sanitizeANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// HighlightYAML applies YAML syntax highlighting if stdout is a TTY.
// Falls back to the plain document if highlighting fails, the document
// is too large, or stdout is not a TTY.
func HighlightYAML(content string, isTTY bool) string {
	if !isTTY || len(content) > maxHighlightSize {
		return content
	}

	// Strip any escape sequences that came in with the source itself.
	content = sanitizeANSI(content)

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, "yaml", "terminal256", "monokai"); err != nil {
		return content
	}
	return buf.String()
}
