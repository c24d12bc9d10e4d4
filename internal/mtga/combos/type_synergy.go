package combos

import (
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// TypeSynergy pairs two cards that share a card type when the partner's text
// rewards that type.
type TypeSynergy struct {
	Name            string
	Category        string
	CardType        string   // Type word both cards must have
	PartnerKeywords []string // Partner text must mention one of these
	PowerLevel      int
	SynergyType     SynergyType
	Explanation     string
}

var typeSynergies = []TypeSynergy{
	{
		Name:            "Artifact Synergy",
		Category:        "artifact_synergy",
		CardType:        "Artifact",
		PartnerKeywords: []string{"artifact", "metalcraft", "affinity", "improvise"},
		PowerLevel:      5,
		SynergyType:     SynergyEngine,
		Explanation:     "Both cards are artifacts and one rewards artifact density.",
	},
	{
		Name:            "Enchantment Synergy",
		Category:        "enchantment_synergy",
		CardType:        "Enchantment",
		PartnerKeywords: []string{"enchantment", "constellation", "aura"},
		PowerLevel:      5,
		SynergyType:     SynergyEngine,
		Explanation:     "Both cards are enchantments and one rewards enchantments.",
	},
	{
		Name:            "Landfall",
		Category:        "landfall_synergy",
		CardType:        "Land",
		PartnerKeywords: []string{"landfall", "whenever a land enters", "play an additional land"},
		PowerLevel:      5,
		SynergyType:     SynergyAcceleration,
		Explanation:     "Land drops trigger the partner's landfall ability.",
	},
	{
		Name:            "Instants and Sorceries",
		Category:        "spell_synergy",
		CardType:        "Instant",
		PartnerKeywords: []string{"instant or sorcery", "noncreature spell", "magecraft", "prowess"},
		PowerLevel:      4,
		SynergyType:     SynergyEngine,
		Explanation:     "Cheap instants feed the partner's spell triggers.",
	},
	{
		Name:            "Instants and Sorceries",
		Category:        "spell_synergy",
		CardType:        "Sorcery",
		PartnerKeywords: []string{"instant or sorcery", "noncreature spell", "magecraft", "prowess"},
		PowerLevel:      4,
		SynergyType:     SynergyEngine,
		Explanation:     "Sorceries feed the partner's spell triggers.",
	},
}

// TribalCategory is the category of shared-creature-type combos.
const TribalCategory = "tribal_synergy"

const tribalPowerLevel = 4

// TypeSynergies returns a copy of the type-based table.
func TypeSynergies() []TypeSynergy {
	out := make([]TypeSynergy, len(typeSynergies))
	copy(out, typeSynergies)
	return out
}

// typeMatch is one type-based pairing found for a target.
type typeMatch struct {
	category    string
	name        string
	power       int
	synergyType SynergyType
	explanation string
	keywords    []string
}

// matchTypeSynergy returns the first type rule satisfied by target and partner.
// The target may have either role for the type, so the partner text or the
// target text may carry the payoff.
func matchTypeSynergy(target, partner *cards.Card) (typeMatch, bool) {
	for _, ts := range typeSynergies {
		if !target.HasType(ts.CardType) || !partner.HasType(ts.CardType) {
			continue
		}
		kws := oracle.CardKeywords(partner, ts.PartnerKeywords)
		if len(kws) == 0 {
			kws = oracle.CardKeywords(target, ts.PartnerKeywords)
		}
		if len(kws) == 0 {
			continue
		}
		return typeMatch{
			category:    ts.Category,
			name:        ts.Name,
			power:       ts.PowerLevel,
			synergyType: ts.SynergyType,
			explanation: ts.Explanation,
			keywords:    kws,
		}, true
	}

	if sub, ok := sharedTribe(target, partner); ok {
		return typeMatch{
			category:    TribalCategory,
			name:        "Tribal",
			power:       tribalPowerLevel,
			synergyType: SynergyEngine,
			explanation: "Both creatures are " + sub + "s and one rewards the tribe.",
			keywords:    []string{strings.ToLower(sub)},
		}, true
	}
	return typeMatch{}, false
}

// sharedTribe finds a creature subtype shared by both cards that either card's
// text mentions.
func sharedTribe(a, b *cards.Card) (string, bool) {
	if !a.HasType("Creature") || !b.HasType("Creature") {
		return "", false
	}
	bSubs := make(map[string]bool)
	for _, s := range b.Subtypes() {
		bSubs[strings.ToLower(s)] = true
	}
	aText := strings.ToLower(oracle.StripReminderText(a.Text()))
	bText := strings.ToLower(oracle.StripReminderText(b.Text()))
	for _, s := range a.Subtypes() {
		lower := strings.ToLower(s)
		if !bSubs[lower] {
			continue
		}
		if strings.Contains(aText, lower) || strings.Contains(bText, lower) {
			return s, true
		}
	}
	return "", false
}
