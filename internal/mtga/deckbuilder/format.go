// Package deckbuilder assembles format-legal decks from selected combos, a
// color identity and a candidate pool.
package deckbuilder

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Format determines deck size and copy limits.
type Format string

const (
	// FormatSingleton is a 100-card format with one copy of each non-basic card.
	FormatSingleton Format = "singleton"
	// FormatMultiples is a 60-card format with up to four copies of each card.
	FormatMultiples Format = "multiples"
)

// ErrUnknownFormat is returned for format names that map to neither family.
var ErrUnknownFormat = errors.New("unknown deck format")

// formatAliases maps user-facing format names to a format family.
var formatAliases = map[string]Format{
	"singleton":   FormatSingleton,
	"commander":   FormatSingleton,
	"edh":         FormatSingleton,
	"brawl":       FormatSingleton,
	"multiples":   FormatMultiples,
	"standard":    FormatMultiples,
	"pioneer":     FormatMultiples,
	"modern":      FormatMultiples,
	"legacy":      FormatMultiples,
	"historic":    FormatMultiples,
	"constructed": FormatMultiples,
}

// ParseFormat resolves a format name or alias, case-insensitively.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatRules are the size and copy rules of a format.
type FormatRules struct {
	Format         Format
	TargetSize     int
	CopyLimit      int     // Per non-basic card
	LandRatio      float64 // Fraction of TargetSize reserved for lands
	ComboCopies    int     // Copies of each combo piece
	CategoryCopies int     // Copies of each quota card
}

// NonLandCap is the largest non-land total the builder aims for.
func (r FormatRules) NonLandCap() int {
	return int(math.Round(float64(r.TargetSize) * (1 - r.LandRatio)))
}

// Rules returns the stock rules for a format.
func Rules(f Format) (FormatRules, error) {
	return DefaultConfig().Rules(f)
}
