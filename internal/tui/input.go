package tui

import (
	"strings"
	"unicode/utf8"
)

// pageSize is the number of users fetched per page.
const pageSize = 10

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 256

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

// appendRunes inserts typed or pasted runes, clamped to maxInputLen.
// Newlines are dropped since every form field is single-line.
func appendRunes(text string, runes []rune) string {
	n := utf8.RuneCountInString(text)
	var b strings.Builder
	b.WriteString(text)
	for _, r := range runes {
		if n >= maxInputLen {
			break
		}
		if r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// mask hides a secret value behind bullets of the same rune length.
func mask(s string) string {
	return strings.Repeat("•", utf8.RuneCountInString(s))
}
