package deckbuilder

import (
	"fmt"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// Role tags why a slot is in the deck.
type Role string

const (
	RoleComboPiece  Role = "combo_piece"
	RoleRamp        Role = "ramp"
	RoleRemoval     Role = "removal"
	RoleCardDraw    Role = "card_draw"
	RoleThreats     Role = "threats"
	RoleUtility     Role = "utility"
	RoleDualLand    Role = "dual_land"
	RoleBasicLand   Role = "basic_land"
	RoleUtilityLand Role = "utility_land"
	RoleGeneric     Role = "generic"
)

// IsLandRole reports whether the role belongs to the land base.
func (r Role) IsLandRole() bool {
	return r == RoleDualLand || r == RoleBasicLand || r == RoleUtilityLand
}

// QuotaCounts is the number of distinct cards wanted per support category.
type QuotaCounts struct {
	Ramp     int `toml:"ramp"`
	Removal  int `toml:"removal"`
	CardDraw int `toml:"card_draw"`
	Threats  int `toml:"threats"`
	Utility  int `toml:"utility"`
}

// Total returns the sum of all counts.
func (q QuotaCounts) Total() int {
	return q.Ramp + q.Removal + q.CardDraw + q.Threats + q.Utility
}

// Config holds the tunable assembly parameters.
type Config struct {
	SingletonLandRatio float64 `toml:"singleton_land_ratio"`
	MultiplesLandRatio float64 `toml:"multiples_land_ratio"`

	// Share of the needed lands that may be dual lands.
	MaxDualShare float64 `toml:"max_dual_share"`

	// Upper bound on colorless utility lands.
	MaxUtilityLands int `toml:"max_utility_lands"`

	// Top the non-land section up to the land ratio with generic cards after
	// the quotas. When off, unfilled quota space becomes lands.
	GenericFill bool `toml:"generic_fill"`

	SingletonQuotas QuotaCounts `toml:"singleton_quotas"`
	MultiplesQuotas QuotaCounts `toml:"multiples_quotas"`
}

// DefaultConfig returns the stock assembly parameters.
func DefaultConfig() Config {
	return Config{
		SingletonLandRatio: 0.38,
		MultiplesLandRatio: 0.40,
		MaxDualShare:       0.30,
		MaxUtilityLands:    3,
		SingletonQuotas: QuotaCounts{
			Ramp:     10,
			Removal:  8,
			CardDraw: 10,
			Threats:  15,
			Utility:  10,
		},
		MultiplesQuotas: QuotaCounts{
			Ramp:     2,
			Removal:  3,
			CardDraw: 2,
			Threats:  4,
			Utility:  1,
		},
	}
}

// Validate checks the parameters for consistency.
func (c Config) Validate() error {
	for name, ratio := range map[string]float64{
		"singleton_land_ratio": c.SingletonLandRatio,
		"multiples_land_ratio": c.MultiplesLandRatio,
		"max_dual_share":       c.MaxDualShare,
	} {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, ratio)
		}
	}
	if c.MaxUtilityLands < 0 {
		return fmt.Errorf("max_utility_lands must be non-negative, got %d", c.MaxUtilityLands)
	}
	for name, q := range map[string]QuotaCounts{"singleton": c.SingletonQuotas, "multiples": c.MultiplesQuotas} {
		if q.Ramp < 0 || q.Removal < 0 || q.CardDraw < 0 || q.Threats < 0 || q.Utility < 0 {
			return fmt.Errorf("%s quotas must be non-negative", name)
		}
	}
	return nil
}

// Rules returns the rules for a format with the configured land ratios.
func (c Config) Rules(f Format) (FormatRules, error) {
	switch f {
	case FormatSingleton:
		return FormatRules{
			Format:         FormatSingleton,
			TargetSize:     100,
			CopyLimit:      1,
			LandRatio:      c.SingletonLandRatio,
			ComboCopies:    1,
			CategoryCopies: 1,
		}, nil
	case FormatMultiples:
		return FormatRules{
			Format:         FormatMultiples,
			TargetSize:     60,
			CopyLimit:      4,
			LandRatio:      c.MultiplesLandRatio,
			ComboCopies:    4,
			CategoryCopies: 3,
		}, nil
	}
	return FormatRules{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Quota is one support category: how many distinct cards to take and which
// cards qualify.
type Quota struct {
	Role    Role
	Count   int
	Matches func(card *cards.Card, analysis *oracle.Analysis) bool
}

var (
	rampPhrases    = []string{"add {", "add one mana", "search your library for a basic land", "search your library for a land", "treasure"}
	removalPhrases = []string{"destroy target", "exile target", "damage to any target", "damage to target", "counter target", "fight"}
)

func isRamp(card *cards.Card, a *oracle.Analysis) bool {
	if card.CMC() > 3 {
		return false
	}
	return a.HasMechanic(oracle.MechanicManaProduction) || oracle.ContainsAny(card.Text(), rampPhrases)
}

func isRemoval(card *cards.Card, _ *oracle.Analysis) bool {
	return oracle.ContainsAny(card.Text(), removalPhrases)
}

func isCardDraw(_ *cards.Card, a *oracle.Analysis) bool {
	return a.HasMechanic(oracle.MechanicCardDraw)
}

func isThreat(card *cards.Card, _ *oracle.Analysis) bool {
	return (card.HasType("Creature") || card.HasType("Planeswalker")) && card.CMC() >= 2
}

func isUtility(card *cards.Card, _ *oracle.Analysis) bool {
	return card.CMC() <= 5
}

// Quotas returns the five support categories for a format in fill order.
func (c Config) Quotas(f Format) ([]Quota, error) {
	var counts QuotaCounts
	switch f {
	case FormatSingleton:
		counts = c.SingletonQuotas
	case FormatMultiples:
		counts = c.MultiplesQuotas
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return []Quota{
		{Role: RoleRamp, Count: counts.Ramp, Matches: isRamp},
		{Role: RoleRemoval, Count: counts.Removal, Matches: isRemoval},
		{Role: RoleCardDraw, Count: counts.CardDraw, Matches: isCardDraw},
		{Role: RoleThreats, Count: counts.Threats, Matches: isThreat},
		{Role: RoleUtility, Count: counts.Utility, Matches: isUtility},
	}, nil
}

// Quotas returns the stock support categories for a format.
func Quotas(f Format) ([]Quota, error) {
	return DefaultConfig().Quotas(f)
}
