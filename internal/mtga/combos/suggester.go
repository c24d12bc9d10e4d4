package combos

import (
	"context"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// Defaults applied to generated records that omit a field.
const (
	DefaultSuggestedReliability = ReliabilityMedium
	DefaultSuggestedSetupTurns  = 5
	DefaultSuggestedManaTotal   = 0
	DefaultSuggestedPower       = 5

	// GeneratedCategory is used when a record carries no category.
	GeneratedCategory = "generated"
)

// SuggestionRequest is what a Suggester receives.
type SuggestionRequest struct {
	Colors        []string   `json:"colors"`
	PowerLevelMin int        `json:"power_level_min"`
	PowerLevelMax int        `json:"power_level_max"`
	MaxSetupTurns int        `json:"max_setup_turns"`
	MaxCards      int        `json:"max_cards"`
	Format        string     `json:"format"`
	CreativeMode  bool       `json:"creative_mode"`
	Avoid         [][]string `json:"avoid"` // Card-name combinations already found
}

// SuggestedCombo is one record returned by a Suggester. Pointer fields are
// optional and defaulted during coercion.
type SuggestedCombo struct {
	Cards         []string `json:"cards"`
	Category      string   `json:"category"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	Steps         []string `json:"steps"`
	Reliability   *string  `json:"reliability,omitempty"`
	SetupTurns    *int     `json:"setup_turns,omitempty"`
	ManaCostTotal *int     `json:"mana_cost_total,omitempty"`
	PowerLevel    *int     `json:"power_level,omitempty"`
}

// Suggester is an optional generative combo collaborator.
type Suggester interface {
	SuggestCombos(ctx context.Context, req SuggestionRequest) ([]SuggestedCombo, error)
}

// SuggesterFunc adapts a function to the Suggester interface.
type SuggesterFunc func(ctx context.Context, req SuggestionRequest) ([]SuggestedCombo, error)

// SuggestCombos calls f.
func (f SuggesterFunc) SuggestCombos(ctx context.Context, req SuggestionRequest) ([]SuggestedCombo, error) {
	return f(ctx, req)
}

// CoerceSuggestion turns a generated record into a well-formed ComboMatch.
// Card names are resolved against byName; unknown names become name-only
// cards. Records naming fewer than two distinct cards are rejected. A stated
// mana total sets the reliability through the configured thresholds; the
// stated reliability is only used when the total is missing.
func (c Config) CoerceSuggestion(s SuggestedCombo, byName map[string]*cards.Card) (*ComboMatch, bool) {
	seen := make(map[string]bool)
	var pieces []*cards.Card
	for _, raw := range s.Cards {
		name := strings.TrimSpace(raw)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		if card, ok := byName[key]; ok {
			pieces = append(pieces, card)
		} else {
			pieces = append(pieces, &cards.Card{Name: name})
		}
	}
	if len(pieces) < 2 {
		return nil, false
	}

	category := strings.TrimSpace(s.Category)
	if category == "" {
		category = GeneratedCategory
	}

	synergyType, ok := ParseSynergyType(strings.ToLower(strings.TrimSpace(s.Type)))
	if !ok {
		synergyType = SynergyEngine
	}

	setup := DefaultSuggestedSetupTurns
	if s.SetupTurns != nil && *s.SetupTurns >= 1 {
		setup = *s.SetupTurns
	}

	manaTotal := DefaultSuggestedManaTotal
	reliability := DefaultSuggestedReliability
	switch {
	case s.ManaCostTotal != nil && *s.ManaCostTotal >= 0:
		manaTotal = *s.ManaCostTotal
		reliability = c.Reliability(manaTotal)
	case s.Reliability != nil:
		if r, ok := ParseReliability(*s.Reliability); ok {
			reliability = r
		}
	}

	power := DefaultSuggestedPower
	if s.PowerLevel != nil {
		power = *s.PowerLevel
	}
	power = clamp(power, 1, 10)

	var explanation []string
	if d := strings.TrimSpace(s.Description); d != "" {
		explanation = append(explanation, d)
	}
	for _, step := range s.Steps {
		if step = strings.TrimSpace(step); step != "" {
			explanation = append(explanation, step)
		}
	}

	return &ComboMatch{
		ID:              ComboID(pieces, category),
		Cards:           pieces,
		Category:        category,
		SynergyType:     synergyType,
		PowerLevel:      power,
		Reliability:     reliability,
		ManaCostTotal:   manaTotal,
		SetupTurns:      setup,
		Explanation:     explanation,
		KeywordsMatched: []string{},
		Source:          SourceGenerated,
	}, true
}
