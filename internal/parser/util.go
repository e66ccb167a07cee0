package parser

import "strings"

// collapseSpaces trims the text and reduces every whitespace run, including
// newlines and non-breaking spaces, to one ASCII space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
