// Package chunker splits a cell that is longer than a provider accepts into
// pieces that can be translated one by one and joined back.
package chunker

import (
	"strings"
	"unicode"
)

// Split breaks text into trimmed pieces of at most limit runes. It cuts after
// the last line break in the window if there is one, else after the last
// sentence end, else at the last space, else hard at the limit. A limit of
// zero or less, or a text that already fits, returns text as the only piece.
func Split(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var pieces []string
	for len(runes) > limit {
		cut := cutPoint(runes[:limit])
		if p := strings.TrimSpace(string(runes[:cut])); p != "" {
			pieces = append(pieces, p)
		}
		runes = trimLeft(runes[cut:])
	}
	if p := strings.TrimSpace(string(runes)); p != "" {
		pieces = append(pieces, p)
	}
	return pieces
}

// cutPoint returns how many runes of window go into the next piece.
func cutPoint(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		switch window[i] {
		case '。', '！', '？':
			return i + 1
		case '.', '!', '?':
			if i+1 < len(window) && unicode.IsSpace(window[i+1]) {
				return i + 1
			}
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return len(window)
}

func trimLeft(r []rune) []rune {
	for len(r) > 0 && unicode.IsSpace(r[0]) {
		r = r[1:]
	}
	return r
}
