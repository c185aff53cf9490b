// Package suggest finds the closest known name for a mistyped one.
package suggest

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Closest returns the best fuzzy match for input among candidates, or "" when
// nothing matches.
func Closest(input string, candidates []string) string {
	input = strings.TrimSpace(input)
	if input == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(input, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// Hint formats a "Did you mean" suffix, or "" when there is no suggestion.
func Hint(input string, candidates []string) string {
	best := Closest(input, candidates)
	if best == "" || best == input {
		return ""
	}
	return ` Did you mean "` + best + `"?`
}
