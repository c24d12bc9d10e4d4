package cards

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Card is the canonical record the engines reason about. Records come from the
// card repository and are never mutated by the engines.
type Card struct {
	// Opaque repository identifier
	ID string `json:"id"`

	Name string `json:"name"`

	// Mana information. ManaValue is nil when unknown.
	ManaValue *int    `json:"mana_value,omitempty"`
	ManaCost  *string `json:"mana_cost,omitempty"`

	// Colors and identity, drawn from W, U, B, R, G. Empty means colorless.
	Colors        []string `json:"colors"`
	ColorIdentity []string `json:"color_identity"`

	// Types holds the ordered type words, supertypes included ("Basic", "Land").
	Types    []string `json:"types"`
	TypeLine string   `json:"type_line"`

	OracleText *string `json:"oracle_text,omitempty"`

	// Legalities maps a format name to whether the card is legal in it.
	Legalities map[string]bool `json:"legalities,omitempty"`
}

// NewCard builds a card from plain values. Colors mirror the identity and the
// type words are derived from the type line. Empty oracle text is stored as nil.
func NewCard(id, name string, manaValue int, identity []string, typeLine, oracleText string) *Card {
	card := &Card{
		ID:            id,
		Name:          name,
		ManaValue:     &manaValue,
		Colors:        NormalizeColors(identity),
		ColorIdentity: NormalizeColors(identity),
		Types:         TypesFromLine(typeLine),
		TypeLine:      typeLine,
	}
	if oracleText != "" {
		card.OracleText = &oracleText
	}
	return card
}

// Text returns the oracle text, or "" when the card has none.
func (c *Card) Text() string {
	if c == nil || c.OracleText == nil {
		return ""
	}
	return *c.OracleText
}

// Key identifies the card within a pool: its id, or its lowercased name when
// the id is unknown.
func (c *Card) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(c.Name))
}

// CMC returns the mana value, treating unknown as zero.
func (c *Card) CMC() int {
	if c == nil || c.ManaValue == nil || *c.ManaValue < 0 {
		return 0
	}
	return *c.ManaValue
}

// Cost returns the raw mana cost string, or "".
func (c *Card) Cost() string {
	if c == nil || c.ManaCost == nil {
		return ""
	}
	return *c.ManaCost
}

// HasType reports whether one of the card's type words equals typeWord (case-insensitive).
// Falls back to the type line when Types is empty.
func (c *Card) HasType(typeWord string) bool {
	if c == nil {
		return false
	}
	if len(c.Types) == 0 {
		for _, word := range TypesFromLine(c.TypeLine) {
			if strings.EqualFold(word, typeWord) {
				return true
			}
		}
		return false
	}
	for _, t := range c.Types {
		if strings.EqualFold(t, typeWord) {
			return true
		}
	}
	return false
}

// IsLand reports whether the card is a land.
func (c *Card) IsLand() bool {
	return c.HasType("Land")
}

// IsBasicLand reports whether the card is a basic land.
func (c *Card) IsBasicLand() bool {
	return c.IsLand() && c.HasType("Basic")
}

// IsColorless reports whether the card has an empty color identity.
func (c *Card) IsColorless() bool {
	return len(NormalizeColors(c.ColorIdentity)) == 0
}

// LegalIn reports whether the card is legal in format. Cards without legality
// data are treated as legal.
func (c *Card) LegalIn(format string) bool {
	if format == "" || len(c.Legalities) == 0 {
		return true
	}
	return c.Legalities[strings.ToLower(format)]
}

// TypesFromLine extracts type words from a type line such as
// "Legendary Creature — Elf Druid". Subtypes after the dash are kept.
func TypesFromLine(typeLine string) []string {
	typeLine = strings.ReplaceAll(typeLine, "—", " ")
	typeLine = strings.ReplaceAll(typeLine, " - ", " ")
	words := strings.Fields(typeLine)
	if len(words) == 0 {
		return nil
	}
	return words
}

// Subtypes returns the words after the type-line dash ("Elf", "Druid").
func (c *Card) Subtypes() []string {
	if c == nil {
		return nil
	}
	line := c.TypeLine
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	idx := strings.Index(line, "—")
	if idx < 0 {
		idx = strings.Index(line, " - ")
		if idx < 0 {
			return nil
		}
		return strings.Fields(line[idx+3:])
	}
	return strings.Fields(line[idx+len("—"):])
}

// ScryfallCard is the subset of the Scryfall card object the importer reads.
type ScryfallCard struct {
	ID            string             `json:"id"`
	OracleID      string             `json:"oracle_id"`
	Name          string             `json:"name"`
	Layout        string             `json:"layout"`
	ManaCost      string             `json:"mana_cost"`
	CMC           *float64           `json:"cmc"`
	TypeLine      string             `json:"type_line"`
	OracleText    string             `json:"oracle_text,omitempty"`
	Colors        []string           `json:"colors"`
	ColorIdentity []string           `json:"color_identity"`
	Legalities    map[string]string  `json:"legalities"`
	CardFaces     []ScryfallCardFace `json:"card_faces,omitempty"`
}

// ScryfallCardFace represents a face of a multi-faced card in Scryfall format.
type ScryfallCardFace struct {
	Name       string   `json:"name"`
	TypeLine   string   `json:"type_line"`
	ManaCost   string   `json:"mana_cost"`
	OracleText string   `json:"oracle_text"`
	Colors     []string `json:"colors"`
}

// ToCard converts a ScryfallCard to our internal Card representation.
func (sc *ScryfallCard) ToCard() *Card {
	card := &Card{
		ID:            sc.ID,
		Name:          sc.Name,
		TypeLine:      sc.TypeLine,
		Colors:        NormalizeColors(sc.Colors),
		ColorIdentity: NormalizeColors(sc.ColorIdentity),
	}

	// Multi-faced cards keep their text on the faces
	oracleText := sc.OracleText
	manaCost := sc.ManaCost
	if len(sc.CardFaces) > 0 {
		if oracleText == "" {
			faces := make([]string, 0, len(sc.CardFaces))
			for _, face := range sc.CardFaces {
				if face.OracleText != "" {
					faces = append(faces, face.OracleText)
				}
			}
			oracleText = strings.Join(faces, "\n")
		}
		if manaCost == "" {
			manaCost = sc.CardFaces[0].ManaCost
		}
		if card.TypeLine == "" {
			card.TypeLine = sc.CardFaces[0].TypeLine
		}
	}

	if oracleText != "" {
		card.OracleText = &oracleText
	}
	if manaCost != "" {
		card.ManaCost = &manaCost
	}

	// Handle mana value
	if sc.CMC != nil && *sc.CMC >= 0 {
		mv := int(math.Round(*sc.CMC))
		card.ManaValue = &mv
	}

	// Only the front face type matters for deck roles
	frontType := card.TypeLine
	if idx := strings.Index(frontType, "//"); idx >= 0 {
		frontType = frontType[:idx]
	}
	card.Types = TypesFromLine(frontType)

	if len(sc.Legalities) > 0 {
		card.Legalities = make(map[string]bool, len(sc.Legalities))
		for format, status := range sc.Legalities {
			card.Legalities[strings.ToLower(format)] = status == "legal" || status == "restricted"
		}
	}

	return card
}

// LoadScryfallJSON decodes a Scryfall bulk-data JSON array into cards.
// Records without a name are skipped.
func LoadScryfallJSON(r io.Reader) ([]*Card, error) {
	var raw []ScryfallCard
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode scryfall cards: %w", err)
	}

	result := make([]*Card, 0, len(raw))
	for i := range raw {
		if raw[i].Name == "" {
			continue
		}
		card := raw[i].ToCard()
		if card.ID == "" {
			card.ID = raw[i].OracleID
		}
		if card.ID == "" {
			card.ID = card.Name
		}
		result = append(result, card)
	}
	return result, nil
}
