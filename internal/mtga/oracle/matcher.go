// Package oracle turns card rules text into structured abilities, keywords,
// mechanics and synergy tags.
package oracle

import (
	"regexp"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

var (
	// reminderText matches parenthesized reminder text.
	reminderText = regexp.MustCompile(`\([^)]*\)`)

	// sentenceEnd splits on terminal punctuation followed by whitespace or end of text.
	sentenceEnd = regexp.MustCompile(`[.!?](\s+|$)|\n+`)
)

// ContainsAny reports whether text contains any of the phrases, case-insensitively.
func ContainsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// MatchedKeywords returns the phrases found in text, in phrase order.
func MatchedKeywords(text string, phrases []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			matched = append(matched, phrase)
		}
	}
	return matched
}

// CardKeywords returns the phrases found in the card's rules text with
// reminder text removed.
func CardKeywords(card *cards.Card, phrases []string) []string {
	return MatchedKeywords(StripReminderText(card.Text()), phrases)
}

// CountMatches returns how many of the phrases occur in text.
func CountMatches(text string, phrases []string) int {
	return len(MatchedKeywords(text, phrases))
}

// StripReminderText removes parenthesized reminder text.
func StripReminderText(text string) string {
	return reminderText.ReplaceAllString(text, "")
}

// SplitSentences splits rules text into trimmed, non-empty sentences.
// Periods inside mana symbols and quoted abilities are not special-cased; the
// classifier tolerates partial clauses.
func SplitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.Trim(part, "\"“”"))
		if part == "" {
			continue
		}
		sentences = append(sentences, part)
	}
	return sentences
}

// hasWordPrefix reports whether lower starts with word followed by a non-letter.
func hasWordPrefix(lower, word string) bool {
	if !strings.HasPrefix(lower, word) {
		return false
	}
	if len(lower) == len(word) {
		return true
	}
	next := lower[len(word)]
	return next < 'a' || next > 'z'
}
