package oracle

import (
	"regexp"
	"strings"
)

// Mechanic names produced by the parser.
const (
	MechanicETB                = "etb"
	MechanicDies               = "dies"
	MechanicCastTrigger        = "cast_trigger"
	MechanicTapAbility         = "tap_ability"
	MechanicSacrifice          = "sacrifice"
	MechanicTokenCreation      = "token_creation"
	MechanicManaProduction     = "mana_production"
	MechanicCardDraw           = "card_draw"
	MechanicLifegain           = "lifegain"
	MechanicDamage             = "damage"
	MechanicUntap              = "untap"
	MechanicBounce             = "bounce"
	MechanicFlicker            = "flicker"
	MechanicCostReduction      = "cost_reduction"
	MechanicTutor              = "tutor"
	MechanicGraveyardRecursion = "graveyard_recursion"
)

// Synergy tags produced by the parser.
const (
	TagETB           = "etb_synergy"
	TagDeath         = "death_synergy"
	TagToken         = "token_synergy"
	TagSacrifice     = "sacrifice_synergy"
	TagMana          = "mana_synergy"
	TagArtifact      = "artifact_synergy"
	TagEnchantment   = "enchantment_synergy"
	TagCounter       = "counter_synergy"
	TagInfinite      = "infinite_potential"
	TagCopy          = "copy_combo"
	TagLifegain      = "lifegain_synergy"
	TagGraveyard     = "graveyard_synergy"
	TagSpellslinger  = "spellslinger_synergy"
	TagCardAdvantage = "card_advantage"
	TagLandfall      = "landfall_synergy"
)

// keywordVocabulary is the fixed list of keyword abilities.
var keywordVocabulary = []string{
	"flying", "trample", "vigilance", "haste", "first strike", "double strike",
	"deathtouch", "lifelink", "hexproof", "indestructible", "menace", "reach",
	"defender", "flash", "protection", "ward", "prowess",
}

var keywordPatterns = compileKeywordPatterns(keywordVocabulary)

var (
	wardParam       = regexp.MustCompile(`(?i)\bward\s*(?:—|-)?\s*((?:\{[^}]+\})+|\d+)`)
	protectionParam = regexp.MustCompile(`(?i)\bprotection from ([a-z]+)`)
)

func compileKeywordPatterns(words []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(words))
	for _, word := range words {
		patterns[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return patterns
}

// mechanicRule maps a pattern to a mechanic name.
type mechanicRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// mechanicTable is evaluated in order; output follows table order.
var mechanicTable = []mechanicRule{
	{MechanicETB, regexp.MustCompile(`(?i)enters the battlefield|\bwhen(ever)?\b[^.]*\benters\b`)},
	{MechanicDies, regexp.MustCompile(`(?i)\bdies\b|put into a graveyard from the battlefield`)},
	{MechanicCastTrigger, regexp.MustCompile(`(?i)\bwhen(ever)? you cast\b|\bmagecraft\b|\bprowess\b`)},
	{MechanicTapAbility, regexp.MustCompile(`(?i)\{t\}\s*[,:]`)},
	{MechanicSacrifice, regexp.MustCompile(`(?i)\bsacrifices?\b`)},
	{MechanicTokenCreation, regexp.MustCompile(`(?i)\bcreates?\b[^.]*\btokens?\b`)},
	{MechanicManaProduction, regexp.MustCompile(`(?i)\badds? (\{|one mana|two mana|three mana|x mana|mana|an amount of)`)},
	{MechanicCardDraw, regexp.MustCompile(`(?i)\bdraws? [^.]*\bcards?\b`)},
	{MechanicLifegain, regexp.MustCompile(`(?i)\bgains? [^.]*?\blife\b|\blifelink\b`)},
	{MechanicDamage, regexp.MustCompile(`(?i)\bdeals? [^.]*\bdamage\b`)},
	{MechanicUntap, regexp.MustCompile(`(?i)\buntaps?\b`)},
	{MechanicBounce, regexp.MustCompile(`(?i)\breturns? [^.]*\bto (its|their) owners?'?s? hands?\b`)},
	{MechanicFlicker, regexp.MustCompile(`(?i)\bexile [^.]*\breturns? [^.]*\bto the battlefield\b`)},
	{MechanicCostReduction, regexp.MustCompile(`(?i)\bcosts? [^.]*\bless\b`)},
	{MechanicTutor, regexp.MustCompile(`(?i)\bsearch (your|their|target player's) library\b`)},
	{MechanicGraveyardRecursion, regexp.MustCompile(`(?i)\breturns? [^.]*\bfrom (your|a|their) graveyard\b|\bfrom your graveyard to the battlefield\b|\bflashback\b|\bescape\b|\bunearth\b`)},
}

// comboFriendly mechanics add 2 interaction points each.
var comboFriendly = map[string]bool{
	MechanicETB:           true,
	MechanicUntap:         true,
	MechanicSacrifice:     true,
	MechanicTokenCreation: true,
	MechanicBounce:        true,
	MechanicFlicker:       true,
}

// supportMechanics add 1 interaction point each.
var supportMechanics = map[string]bool{
	MechanicTutor:          true,
	MechanicCardDraw:       true,
	MechanicManaProduction: true,
	MechanicCostReduction:  true,
}

// staticIndicators mark a sentence as a static ability.
var staticIndicators = []string{
	"has ", "have ", "can't ", "doesn't ", "gains ", "loses ", "gets ", "get +", "get -", "costs ", "cost ",
}

// costVerbs mark a colon prefix as an activation cost even without mana symbols.
var costVerbs = []string{"sacrifice", "pay", "discard", "exile", "remove", "tap", "untap", "return", "reveal"}

// tagContext is what a synergy rule sees.
type tagContext struct {
	lower     string
	mechanics map[string]bool
	keywords  map[string]bool
	abilities []Ability
}

func (c *tagContext) has(mechanics ...string) bool {
	for _, m := range mechanics {
		if c.mechanics[m] {
			return true
		}
	}
	return false
}

func (c *tagContext) mentions(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(c.lower, p) {
			return true
		}
	}
	return false
}

func (c *tagContext) hasTapActivation() bool {
	for _, ab := range c.abilities {
		if ab.Kind == KindActivated && strings.Contains(strings.ToLower(ab.Cost), "{t}") {
			return true
		}
	}
	return false
}

// tagRule derives one synergy tag.
type tagRule struct {
	Tag   string
	Match func(c *tagContext) bool
}

var tagRules = []tagRule{
	{TagETB, func(c *tagContext) bool { return c.has(MechanicETB, MechanicFlicker) }},
	{TagDeath, func(c *tagContext) bool { return c.has(MechanicDies) }},
	{TagToken, func(c *tagContext) bool { return c.has(MechanicTokenCreation) || c.mentions("token") }},
	{TagSacrifice, func(c *tagContext) bool { return c.has(MechanicSacrifice) }},
	{TagMana, func(c *tagContext) bool { return c.has(MechanicManaProduction, MechanicCostReduction) }},
	{TagArtifact, func(c *tagContext) bool { return c.mentions("artifact", "treasure", "metalcraft", "affinity") }},
	{TagEnchantment, func(c *tagContext) bool { return c.mentions("enchantment", "constellation") }},
	{TagCounter, func(c *tagContext) bool { return c.mentions("+1/+1 counter", "-1/-1 counter", "proliferate", "poison counter") }},
	{TagInfinite, func(c *tagContext) bool {
		if c.has(MechanicUntap) && (c.has(MechanicManaProduction) || c.hasTapActivation()) {
			return true
		}
		return c.mentions("token that's a copy", "copy of it", "return it to the battlefield") && c.has(MechanicETB, MechanicDies, MechanicSacrifice)
	}},
	{TagCopy, func(c *tagContext) bool { return c.mentions("copy", "copies") }},
	{TagLifegain, func(c *tagContext) bool { return c.has(MechanicLifegain) || c.mentions("whenever you gain life") }},
	{TagGraveyard, func(c *tagContext) bool { return c.has(MechanicGraveyardRecursion) || c.mentions("graveyard", "mill") }},
	{TagSpellslinger, func(c *tagContext) bool {
		return c.has(MechanicCastTrigger) || c.keywords["prowess"] || c.mentions("instant or sorcery", "noncreature spell")
	}},
	{TagCardAdvantage, func(c *tagContext) bool { return c.has(MechanicCardDraw, MechanicTutor) }},
	{TagLandfall, func(c *tagContext) bool { return c.mentions("landfall", "whenever a land enters") }},
}
