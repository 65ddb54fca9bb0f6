// Package placeholder shields the parts of a localisation string that must
// survive translation verbatim: format verbs, template variables and inline
// markup. Protect swaps each one for an XLIFF-style <x id="n"/> token that LLM
// providers are told to keep; Restore swaps them back.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reToken = regexp.MustCompile(strings.Join([]string{
		`\{\{[^{}]*\}\}`,                              // {{name}}
		`\$\{[^{}]*\}`,                                // ${name}
		`\{[A-Za-z0-9_.]*\}`,                          // {0}, {count}
		`%(?:\d+\$)?[-+#0]*\d*(?:\.\d+)?[sdfgxXcvq@]`, // %s, %1$d, %.2f, %@
		`</?[A-Za-z][^<>]*>`,                          // <b>, </a>, <br/>
	}, "|"))

	reMarker = regexp.MustCompile(`<x\s+id="(\d+)"\s*/>`)
)

func marker(i int) string {
	return fmt.Sprintf(`<x id="%d"/>`, i)
}

// Protect replaces every protected token in text, left to right, with a
// numbered marker and returns the originals in marker order.
func Protect(text string) (string, []string) {
	var tokens []string
	out := reToken.ReplaceAllStringFunc(text, func(tok string) string {
		tokens = append(tokens, tok)
		return marker(len(tokens) - 1)
	})
	return out, tokens
}

// Restore puts the originals back. Markers with an unknown id are left as
// they are so the damage stays visible in the comparison sheet.
func Restore(text string, tokens []string) string {
	if len(tokens) == 0 {
		return text
	}
	return reMarker.ReplaceAllStringFunc(text, func(m string) string {
		id, err := strconv.Atoi(reMarker.FindStringSubmatch(m)[1])
		if err != nil || id >= len(tokens) {
			return m
		}
		return tokens[id]
	})
}

// Missing returns the ids of markers that a provider dropped.
func Missing(text string, tokens []string) []int {
	seen := make(map[int]bool, len(tokens))
	for _, sub := range reMarker.FindAllStringSubmatch(text, -1) {
		if id, err := strconv.Atoi(sub[1]); err == nil {
			seen[id] = true
		}
	}
	var missing []int
	for i := range tokens {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// Hint is the prompt sentence that asks a model to keep the markers.
func Hint() string {
	return `Keep every <x id="n"/> marker exactly as written and in a grammatically sensible position. Do not translate or remove them.`
}
