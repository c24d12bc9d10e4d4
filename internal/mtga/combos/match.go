package combos

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// Reliability is a coarse rating of how cheaply a combo assembles.
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// ParseReliability returns the reliability named by s, case-insensitively.
func ParseReliability(s string) (Reliability, bool) {
	switch r := Reliability(strings.ToLower(strings.TrimSpace(s))); r {
	case ReliabilityHigh, ReliabilityMedium, ReliabilityLow:
		return r, true
	}
	return "", false
}

// Source records where a combo came from.
type Source string

const (
	SourceLocal     Source = "local"
	SourceGenerated Source = "generated"
)

// ComboMatch is one discovered combination. Cards[0] is the target when the
// combo was found around a target card.
type ComboMatch struct {
	ID              string        `json:"id"`
	Cards           []*cards.Card `json:"cards"`
	Category        string        `json:"category"`
	SynergyType     SynergyType   `json:"synergy_type"`
	PowerLevel      int           `json:"power_level"`
	Reliability     Reliability   `json:"reliability"`
	ManaCostTotal   int           `json:"mana_cost_total"`
	SetupTurns      int           `json:"setup_turns"`
	Explanation     []string      `json:"explanation"`
	KeywordsMatched []string      `json:"keywords_matched"`
	Source          Source        `json:"source"`
}

// CardNames returns the names of the participating cards in order.
func (m *ComboMatch) CardNames() []string {
	names := make([]string, len(m.Cards))
	for i, c := range m.Cards {
		names[i] = c.Name
	}
	return names
}

// HasCard reports whether a card with the given id takes part in the combo.
func (m *ComboMatch) HasCard(id string) bool {
	for _, c := range m.Cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

var comboNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("deckforge/combos"))

// ComboID derives a stable id from the ordered card keys and category. Cards
// without an id contribute their lowercased name.
func ComboID(pieces []*cards.Card, category string) string {
	keys := make([]string, 0, len(pieces)+1)
	for _, c := range pieces {
		keys = append(keys, c.Key())
	}
	keys = append(keys, category)
	return uuid.NewSHA1(comboNamespace, []byte(strings.Join(keys, "|"))).String()
}

// cardSetKey identifies a combo by its card names regardless of order.
func cardSetKey(names []string) string {
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(strings.TrimSpace(n))
	}
	sort.Strings(lower)
	return strings.Join(lower, "|")
}

// totalManaValue sums the pieces' mana values, unknown counting as zero.
func totalManaValue(pieces []*cards.Card) int {
	total := 0
	for _, c := range pieces {
		total += c.CMC()
	}
	return total
}

// setupTurns estimates the earliest turn the combo is live: the highest mana
// value among the pieces, at least 1.
func setupTurns(pieces []*cards.Card) int {
	turns := 1
	for _, c := range pieces {
		if mv := c.CMC(); mv > turns {
			turns = mv
		}
	}
	return turns
}

// sortMatches orders by power level descending, local before generated on ties.
// The sort is stable so equal matches keep discovery order.
func sortMatches(matches []*ComboMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].PowerLevel != matches[j].PowerLevel {
			return matches[i].PowerLevel > matches[j].PowerLevel
		}
		return sourceRank(matches[i].Source) < sourceRank(matches[j].Source)
	})
}

func sourceRank(s Source) int {
	if s == SourceLocal {
		return 0
	}
	return 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
