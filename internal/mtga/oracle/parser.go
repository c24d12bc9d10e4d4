package oracle

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// AbilityKind discriminates parsed ability variants.
type AbilityKind string

const (
	KindTriggered   AbilityKind = "triggered"
	KindActivated   AbilityKind = "activated"
	KindStatic      AbilityKind = "static"
	KindReplacement AbilityKind = "replacement"
)

// MaxInteractionPotential caps the interaction score.
const MaxInteractionPotential = 10

// Ability is one parsed rules clause.
type Ability struct {
	Kind      AbilityKind `json:"type"`
	Trigger   string      `json:"trigger,omitempty"`
	Condition string      `json:"condition,omitempty"`
	Cost      string      `json:"cost,omitempty"`
	Effect    string      `json:"effect"`
	Optional  bool        `json:"optional"`
}

// Analysis holds everything derived from one oracle text. Values returned by
// the parser may be shared between callers and must be treated as read-only.
type Analysis struct {
	Abilities            []Ability `json:"abilities"`
	Keywords             []string  `json:"keywords"`
	Mechanics            []string  `json:"mechanics"`
	SynergyTags          []string  `json:"synergy_tags"`
	InteractionPotential int       `json:"interaction_potential"`
}

// HasMechanic reports whether the analysis contains mechanic.
func (a *Analysis) HasMechanic(mechanic string) bool {
	return containsString(a.Mechanics, mechanic)
}

// HasTag reports whether the analysis contains a synergy tag.
func (a *Analysis) HasTag(tag string) bool {
	return containsString(a.SynergyTags, tag)
}

// HasKeyword reports whether the analysis contains a keyword, ignoring any
// parameter suffix ("ward:2" matches "ward").
func (a *Analysis) HasKeyword(keyword string) bool {
	for _, k := range a.Keywords {
		if k == keyword || strings.HasPrefix(k, keyword+":") {
			return true
		}
	}
	return false
}

// CountKind returns how many abilities have the given kind.
func (a *Analysis) CountKind(kind AbilityKind) int {
	n := 0
	for _, ab := range a.Abilities {
		if ab.Kind == kind {
			n++
		}
	}
	return n
}

var (
	conditionClause = regexp.MustCompile(`(?i)\bif ([^,.]+)`)
	activationSplit = regexp.MustCompile(`^([^:"]+):\s*(.*)$`)
	bracketedCost   = regexp.MustCompile(`\{[^}]+\}`)
	loyaltyCost     = regexp.MustCompile(`^[+−-]?(\d+|x)$`)
	mayWord         = regexp.MustCompile(`(?i)\bmay\b`)
)

func emptyAnalysis() *Analysis {
	return &Analysis{
		Abilities:   []Ability{},
		Keywords:    []string{},
		Mechanics:   []string{},
		SynergyTags: []string{},
	}
}

// ParseCard analyzes a card's oracle text. A nil card or missing text yields
// an empty analysis.
func ParseCard(card *cards.Card) *Analysis {
	return Parse(card.Text())
}

// Parse analyzes oracle text. It is pure and total: the same text always
// yields an equal analysis and no input panics.
func Parse(text string) *Analysis {
	analysis := emptyAnalysis()
	if strings.TrimSpace(text) == "" {
		return analysis
	}

	clean := StripReminderText(text)

	for _, sentence := range SplitSentences(clean) {
		if ability, ok := classifySentence(sentence); ok {
			analysis.Abilities = append(analysis.Abilities, ability)
		}
	}

	analysis.Keywords = extractKeywords(clean)
	analysis.Mechanics = extractMechanics(clean)
	analysis.SynergyTags = deriveSynergyTags(strings.ToLower(clean), analysis)
	analysis.InteractionPotential = interactionPotential(analysis)

	return analysis
}

// classifySentence turns one sentence into an ability when it looks like one.
func classifySentence(sentence string) (Ability, bool) {
	lower := strings.ToLower(sentence)

	for _, word := range []string{"whenever", "when", "at"} {
		if hasWordPrefix(lower, word) {
			return parseTriggered(sentence, len(word)), true
		}
	}

	if ability, ok := parseActivated(sentence); ok {
		return ability, true
	}

	if strings.Contains(lower, " instead") || (hasWordPrefix(lower, "if") && strings.Contains(lower, " would ")) {
		return Ability{
			Kind:     KindReplacement,
			Effect:   sentence,
			Optional: mayWord.MatchString(sentence),
		}, true
	}

	for _, indicator := range staticIndicators {
		if strings.Contains(lower, indicator) {
			return Ability{Kind: KindStatic, Effect: sentence}, true
		}
	}

	return Ability{}, false
}

// parseTriggered splits "When X, if Y, Z" into trigger, condition and effect.
func parseTriggered(sentence string, wordLen int) Ability {
	rest := strings.TrimSpace(sentence[wordLen:])
	ability := Ability{
		Kind:     KindTriggered,
		Optional: mayWord.MatchString(sentence),
	}

	if comma := strings.Index(rest, ","); comma >= 0 {
		ability.Trigger = strings.TrimSpace(rest[:comma])
		ability.Effect = strings.TrimSpace(rest[comma+1:])
	} else {
		ability.Trigger = rest
	}

	if m := conditionClause.FindStringSubmatchIndex(ability.Effect); m != nil {
		ability.Condition = strings.TrimSpace(ability.Effect[m[2]:m[3]])
		if m[0] == 0 {
			remainder := strings.TrimLeft(ability.Effect[m[1]:], ", ")
			if remainder != "" {
				ability.Effect = remainder
			}
		}
	} else if m := conditionClause.FindStringSubmatch(ability.Trigger); m != nil {
		ability.Condition = strings.TrimSpace(m[1])
	}

	return ability
}

// parseActivated recognizes "Cost: Effect" sentences.
func parseActivated(sentence string) (Ability, bool) {
	m := activationSplit.FindStringSubmatch(sentence)
	if m == nil {
		return Ability{}, false
	}
	cost := strings.TrimSpace(m[1])
	if !isCost(cost) {
		return Ability{}, false
	}
	return Ability{
		Kind:     KindActivated,
		Cost:     cost,
		Effect:   strings.TrimSpace(m[2]),
		Optional: true,
	}, true
}

func isCost(prefix string) bool {
	if bracketedCost.MatchString(prefix) {
		return true
	}
	lower := strings.ToLower(prefix)
	if loyaltyCost.MatchString(lower) {
		return true
	}
	for _, verb := range costVerbs {
		if hasWordPrefix(lower, verb) {
			return true
		}
	}
	return false
}

// extractKeywords finds keyword abilities, appending parameters for ward and protection.
func extractKeywords(text string) []string {
	keywords := []string{}
	for _, word := range keywordVocabulary {
		if !keywordPatterns[word].MatchString(text) {
			continue
		}
		switch word {
		case "ward":
			if m := wardParam.FindStringSubmatch(text); m != nil {
				param := strings.NewReplacer("{", "", "}", "").Replace(m[1])
				keywords = append(keywords, "ward:"+strings.ToLower(param))
				continue
			}
		case "protection":
			if m := protectionParam.FindStringSubmatch(text); m != nil {
				keywords = append(keywords, "protection:"+strings.ToLower(m[1]))
				continue
			}
		}
		keywords = append(keywords, word)
	}
	return keywords
}

func extractMechanics(text string) []string {
	mechanics := []string{}
	for _, rule := range mechanicTable {
		if rule.Pattern.MatchString(text) {
			mechanics = append(mechanics, rule.Name)
		}
	}
	return mechanics
}

func deriveSynergyTags(lower string, analysis *Analysis) []string {
	ctx := &tagContext{
		lower:     lower,
		mechanics: toSet(analysis.Mechanics),
		keywords:  toSet(analysis.Keywords),
		abilities: analysis.Abilities,
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, rule := range tagRules {
		if seen[rule.Tag] || !rule.Match(ctx) {
			continue
		}
		seen[rule.Tag] = true
		tags = append(tags, rule.Tag)
	}
	sort.Strings(tags)
	return tags
}

func interactionPotential(analysis *Analysis) int {
	score := 0
	for _, ab := range analysis.Abilities {
		switch ab.Kind {
		case KindTriggered:
			score += 2
		case KindActivated:
			score += 3
		case KindStatic, KindReplacement:
		}
	}
	for _, m := range analysis.Mechanics {
		if comboFriendly[m] {
			score += 2
		} else if supportMechanics[m] {
			score++
		}
	}
	if score > MaxInteractionPotential {
		score = MaxInteractionPotential
	}
	return score
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
