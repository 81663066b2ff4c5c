package speech

import (
	"strings"
	"unicode"
)

// CleanTranscript normalizes raw transcription text for intent parsing:
// lowercase, alphanumeric and spaces only, runs of whitespace collapsed.
// If the wake phrase appears in the result, everything up to and including
// it is cut, so "hey alexa turn on the light" parses as "turn on the
// light".
func CleanTranscript(text, wakePhrase string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")

	if wakePhrase == "" {
		return cleaned
	}
	if idx := strings.Index(cleaned, wakePhrase); idx >= 0 {
		return strings.TrimSpace(cleaned[idx+len(wakePhrase):])
	}
	return cleaned
}
