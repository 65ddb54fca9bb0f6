// Package postprocess strips the chatter LLM providers wrap around a
// translation so that a comparison cell holds only the translated string.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	// Complete reasoning blocks, and a trailing one the model never closed.
	// RE2 has no backreferences, so each tag pair is spelled out.
	reReasoning = regexp.MustCompile(
		`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	reOpenReasoning = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>|<reflection>).*$`)

	// Lead-ins such as "Here is the translation:" or "Sure! Translation:".
	reLeadIn = regexp.MustCompile(
		`(?i)^(?:(?:certainly|sure|of course|okay)[,.!]?\s+)?` +
			`(?:here(?:'s| is)\s+)?(?:the\s+)?(?:[a-z]+\s+)?(?:translation|translated text)` +
			`(?:\s+(?:in|into)\s+[a-z]+)?\s*:\s*`,
	)

	// A trailing paragraph in which the model explains itself.
	reTrailingNote = regexp.MustCompile(`(?is)\n\s*\n\s*\(?(?:note|explanation|translator'?s note)\s*:.*$`)
)

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'“', '”'},
	{'‘', '’'},
	{'„', '“'},
	{'「', '」'},
}

// Clean returns the translation inside raw model output. source is the text
// that was translated: quotes it already had are kept, and a single-line
// source yields a single-line result.
func Clean(raw, source string) string {
	text := StripReasoning(raw)

	text = reTrailingNote.ReplaceAllString(text, "")
	if loc := reLeadIn.FindStringIndex(text); loc != nil && !reLeadIn.MatchString(source) {
		text = strings.TrimSpace(text[loc[1]:])
	}

	if !quoted(strings.TrimSpace(source)) {
		text = unquote(text)
	}
	if !strings.Contains(source, "\n") && strings.Contains(text, "\n") {
		text = strings.Join(strings.Fields(text), " ")
	}
	return strings.TrimSpace(text)
}

// StripReasoning removes <think>-style blocks, closed or not, and trims.
func StripReasoning(raw string) string {
	text := reReasoning.ReplaceAllString(raw, "")
	text = reOpenReasoning.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func quoted(s string) bool {
	r := []rune(s)
	if len(r) < 2 {
		return false
	}
	for _, p := range quotePairs {
		if r[0] == p[0] && r[len(r)-1] == p[1] {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	if !quoted(s) {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[1 : len(r)-1]))
}
