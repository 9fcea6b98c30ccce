package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits text into parts of at most maxLen runes, preferring to
// break after a newline in the second half of a part.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			parts = append(parts, string(runes))
			break
		}

		splitAt := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if runes[i] == '\n' {
				splitAt = i + 1
				break
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		runes = runes[splitAt:]
	}

	return parts
}

// Truncate cuts text to maxLen runes, marking the cut with an ellipsis.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return string([]rune(text)[:maxLen-1]) + "…"
}

// CommandArgs returns the text after the leading /command word.
func CommandArgs(text string) string {
	_, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(args)
}
