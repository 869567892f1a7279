package crew

import "strings"

// Substitute replaces {name} placeholders in template text using the given
// bindings. The text is scanned left to right; a placeholder is a single
// brace pair enclosing one or more non-brace characters. Matches are
// non-overlapping and substituted values are never re-scanned, so a bound
// value containing braces cannot trigger further expansion.
//
// Placeholders whose name has no binding are left in place and reported in
// the returned slice, in order of first appearance, as a diagnostic only.
// With no bindings the text is returned unchanged; that is a defined
// success, not skipped work. Once no unresolved placeholders remain,
// re-applying Substitute with any bindings is a no-op.
func Substitute(text string, bindings map[string]string) (string, []string) {
	if len(bindings) == 0 {
		return text, nil
	}

	var out strings.Builder
	out.Grow(len(text))

	var unresolved []string
	seen := make(map[string]bool)

	i := 0
	for i < len(text) {
		if text[i] != '{' {
			out.WriteByte(text[i])
			i++
			continue
		}

		// Scan for the closing brace. A nested brace or end of input means
		// no placeholder starts here; emit the brace and move on.
		j := i + 1
		for j < len(text) && text[j] != '{' && text[j] != '}' {
			j++
		}
		if j >= len(text) || text[j] != '}' || j == i+1 {
			out.WriteByte(text[i])
			i++
			continue
		}

		name := text[i+1 : j]
		if value, ok := bindings[name]; ok {
			out.WriteString(value)
		} else {
			out.WriteString(text[i : j+1])
			if !seen[name] {
				seen[name] = true
				unresolved = append(unresolved, name)
			}
		}
		i = j + 1
	}

	return out.String(), unresolved
}
