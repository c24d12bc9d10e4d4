// Package combos finds synergistic card combinations, either around one
// target card or across a color-filtered pool.
package combos

// SynergyType classifies how the pieces of a combo interact.
type SynergyType string

const (
	SynergyInfinite     SynergyType = "infinite"
	SynergyEngine       SynergyType = "engine"
	SynergyProtection   SynergyType = "protection"
	SynergyAcceleration SynergyType = "acceleration"
	SynergyWinCondition SynergyType = "win_condition"
)

// ParseSynergyType returns the synergy type named by s, or false when s is unknown.
func ParseSynergyType(s string) (SynergyType, bool) {
	switch t := SynergyType(s); t {
	case SynergyInfinite, SynergyEngine, SynergyProtection, SynergyAcceleration, SynergyWinCondition:
		return t, true
	}
	return "", false
}

// SynergyPattern is a named archetype matched between a target and its partners.
type SynergyPattern struct {
	Name            string      // Display name (e.g., "Sacrifice Engine")
	Category        string      // Stable identifier used in combo ids
	PowerLevel      int         // Baseline power, 1-10
	TargetKeywords  []string    // Lowercase phrases looked for on the target
	PartnerKeywords []string    // Lowercase phrases looked for on partners
	SynergyType     SynergyType // How the pieces interact
	Explanation     string      // One-line summary of the interaction
}

// synergyPatterns is the archetype table. It is never written after init.
var synergyPatterns = []SynergyPattern{
	{
		Name:            "Infinite Mana",
		Category:        "infinite_mana",
		PowerLevel:      9,
		TargetKeywords:  []string{"untap target", "untap all", "untap another", "untap each"},
		PartnerKeywords: []string{"{t}: add", "add {c}{c}", "add two mana", "add three mana", "add x mana"},
		SynergyType:     SynergyInfinite,
		Explanation:     "Untapping a mana source that produces more mana than the untap costs generates unbounded mana.",
	},
	{
		Name:            "Sacrifice Engine",
		Category:        "sacrifice_engine",
		PowerLevel:      7,
		TargetKeywords:  []string{"sacrifice a creature", "sacrifice another creature", "sacrifice a permanent", "sacrifice an artifact"},
		PartnerKeywords: []string{"whenever a creature dies", "whenever another creature dies", "whenever a creature you control dies", "whenever another creature you control dies", "when this creature dies"},
		SynergyType:     SynergyEngine,
		Explanation:     "A free sacrifice outlet turns every death trigger into repeatable value.",
	},
	{
		Name:            "Infinite Tokens",
		Category:        "infinite_tokens",
		PowerLevel:      8,
		TargetKeywords:  []string{"create a token that's a copy", "token that's a copy", "copy of target creature"},
		PartnerKeywords: []string{"untap", "enters the battlefield, create", "when this creature enters", "whenever a creature enters", "haste"},
		SynergyType:     SynergyInfinite,
		Explanation:     "Copy effects that feed back into their own trigger create an unbounded number of tokens.",
	},
	{
		Name:            "Blink Engine",
		Category:        "blink_engine",
		PowerLevel:      6,
		TargetKeywords:  []string{"exile target creature you control, then return", "exile another target creature you control", "return it to the battlefield", "flicker"},
		PartnerKeywords: []string{"when this creature enters", "enters the battlefield", "when it enters", "whenever another creature enters"},
		SynergyType:     SynergyEngine,
		Explanation:     "Repeated exile-and-return reuses enter-the-battlefield effects.",
	},
	{
		Name:            "Aristocrats",
		Category:        "aristocrats",
		PowerLevel:      7,
		TargetKeywords:  []string{"whenever a creature you control dies", "whenever another creature you control dies", "whenever a creature dies", "each opponent loses 1 life"},
		PartnerKeywords: []string{"create a", "creature token", "sacrifice a creature", "sacrifice another creature"},
		SynergyType:     SynergyWinCondition,
		Explanation:     "Token makers and sacrifice outlets convert bodies into life drain.",
	},
	{
		Name:            "Graveyard Loop",
		Category:        "graveyard_loop",
		PowerLevel:      7,
		TargetKeywords:  []string{"return target creature card from your graveyard", "from your graveyard to the battlefield", "return it from your graveyard", "escape", "unearth"},
		PartnerKeywords: []string{"mill", "discard a card", "put into your graveyard", "when this creature dies", "sacrifice"},
		SynergyType:     SynergyEngine,
		Explanation:     "Filling the graveyard fuels repeated recursion.",
	},
	{
		Name:            "Counters Engine",
		Category:        "counters_engine",
		PowerLevel:      6,
		TargetKeywords:  []string{"+1/+1 counter", "-1/-1 counter", "proliferate", "poison counter"},
		PartnerKeywords: []string{"proliferate", "double the number", "whenever one or more +1/+1 counters", "for each +1/+1 counter", "with a +1/+1 counter"},
		SynergyType:     SynergyEngine,
		Explanation:     "Counter placement and proliferation compound each other.",
	},
	{
		Name:            "Spellslinger",
		Category:        "spellslinger",
		PowerLevel:      6,
		TargetKeywords:  []string{"whenever you cast an instant or sorcery", "whenever you cast a noncreature spell", "magecraft", "prowess"},
		PartnerKeywords: []string{"copy target instant or sorcery", "draw a card", "instant and sorcery spells you cast cost", "scry", "flashback"},
		SynergyType:     SynergyEngine,
		Explanation:     "Cheap spells trigger payoffs that refuel the hand.",
	},
	{
		Name:            "Lifegain Drain",
		Category:        "lifegain_drain",
		PowerLevel:      8,
		TargetKeywords:  []string{"whenever you gain life", "each opponent loses", "target opponent loses"},
		PartnerKeywords: []string{"you gain", "gain life", "lifelink", "whenever an opponent loses life"},
		SynergyType:     SynergyWinCondition,
		Explanation:     "Lifegain triggers that drain opponents can loop into a win.",
	},
	{
		Name:            "Voltron Protection",
		Category:        "voltron_protection",
		PowerLevel:      5,
		TargetKeywords:  []string{"equipped creature", "enchanted creature", "equip {"},
		PartnerKeywords: []string{"hexproof", "indestructible", "protection from", "ward", "shroud"},
		SynergyType:     SynergyProtection,
		Explanation:     "Protection keeps a heavily suited-up threat on the battlefield.",
	},
	{
		Name:            "Cost Reduction Ramp",
		Category:        "cost_reduction_ramp",
		PowerLevel:      6,
		TargetKeywords:  []string{"cost {1} less", "cost {2} less", "costs {1} less", "costs less", "spells you cast cost"},
		PartnerKeywords: []string{"add {", "add one mana", "search your library for a basic land", "create a treasure"},
		SynergyType:     SynergyAcceleration,
		Explanation:     "Cheaper spells plus extra mana accelerate the game plan.",
	},
	{
		Name:            "Extra Combat",
		Category:        "extra_combat",
		PowerLevel:      8,
		TargetKeywords:  []string{"additional combat phase", "untap all creatures you control"},
		PartnerKeywords: []string{"whenever this creature attacks", "whenever a creature you control attacks", "double strike", "haste", "whenever you attack"},
		SynergyType:     SynergyWinCondition,
		Explanation:     "Attack triggers multiply with every extra combat.",
	},
	{
		Name:            "Draw Punisher",
		Category:        "draw_punisher",
		PowerLevel:      7,
		TargetKeywords:  []string{"whenever an opponent draws a card", "whenever a player draws a card"},
		PartnerKeywords: []string{"each player draws", "each opponent draws", "target player draws", "wheel"},
		SynergyType:     SynergyWinCondition,
		Explanation:     "Forced symmetric draws turn draw punishers into damage.",
	},
}

// Patterns returns a copy of the archetype table.
func Patterns() []SynergyPattern {
	out := make([]SynergyPattern, len(synergyPatterns))
	copy(out, synergyPatterns)
	return out
}

// PatternByCategory returns the pattern with the given category.
func PatternByCategory(category string) (SynergyPattern, bool) {
	for _, p := range synergyPatterns {
		if p.Category == category {
			return p, true
		}
	}
	return SynergyPattern{}, false
}

// PoolPattern is a keyword group scanned across a whole pool.
type PoolPattern struct {
	Name        string
	Category    string
	PowerLevel  int
	Keywords    []string
	SynergyType SynergyType
	Explanation string
}

var poolPatterns = []PoolPattern{
	{
		Name:        "Poison Proliferate",
		Category:    "poison_proliferate",
		PowerLevel:  7,
		Keywords:    []string{"poison counter", "toxic", "infect", "proliferate"},
		SynergyType: SynergyWinCondition,
		Explanation: "Poison sources backed by proliferate close games quickly.",
	},
	{
		Name:        "Infinite Tokens",
		Category:    "infinite_tokens",
		PowerLevel:  8,
		Keywords:    []string{"token that's a copy", "create a token", "populate", "whenever a creature enters"},
		SynergyType: SynergyInfinite,
		Explanation: "Token copy effects and enter triggers feed each other.",
	},
	{
		Name:        "Infinite Mana",
		Category:    "infinite_mana",
		PowerLevel:  8,
		Keywords:    []string{"untap target", "untap all", "{t}: add", "add {c}{c}"},
		SynergyType: SynergyInfinite,
		Explanation: "Untap effects and mana sources can loop into unbounded mana.",
	},
	{
		Name:        "Sacrifice Synergy",
		Category:    "sacrifice_synergy",
		PowerLevel:  6,
		Keywords:    []string{"sacrifice a creature", "sacrifice another creature", "whenever a creature you control dies", "whenever another creature dies"},
		SynergyType: SynergyEngine,
		Explanation: "Sacrifice outlets and death triggers grind value.",
	},
	{
		Name:        "Draw Mill",
		Category:    "draw_mill",
		PowerLevel:  5,
		Keywords:    []string{"mills", "mill", "draw a card", "each player draws"},
		SynergyType: SynergyEngine,
		Explanation: "Draw and mill effects race through libraries.",
	},
}

// PoolPatterns returns a copy of the pool-scan table.
func PoolPatterns() []PoolPattern {
	out := make([]PoolPattern, len(poolPatterns))
	copy(out, poolPatterns)
	return out
}
