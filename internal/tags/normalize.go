package tags

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stripped are removed from every normalized string.
const stripped = "'\"/=-,.:;\n\t<>^`&%$£@#!?§°*+"

// Normalize folds a tag value into its comparable form: lower case, bracketed
// annotations such as "(Live)" or "[Remix]" removed, punctuation stripped and
// runs of whitespace collapsed to one space with no leading or trailing space.
func Normalize(s string) string {
	// A Caser is stateful, so one per call.
	s = cases.Lower(language.Und).String(s)

	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 || strings.ContainsRune(stripped, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
