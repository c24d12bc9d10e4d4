package deckbuilder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
)

func spell(id, name string, mv int, identity []string, typeLine, text, cost string) *cards.Card {
	c := cards.NewCard(id, name, mv, identity, typeLine, text)
	if cost != "" {
		c.ManaCost = &cost
	}
	return c
}

func basic(id, name, color string) *cards.Card {
	return cards.NewCard(id, name, 0, []string{color}, "Basic Land — "+name, "")
}

func dual(id, name string, colors ...string) *cards.Card {
	return cards.NewCard(id, name, 0, colors, "Land", "{T}: Add one mana of either color.")
}

// nonlandPool builds n cards spread over the five support categories.
func nonlandPool(n int, colors [][]string) []*cards.Card {
	pool := make([]*cards.Card, 0, n)
	for i := 0; i < n; i++ {
		identity := colors[i%len(colors)]
		cost := "{1}"
		for _, c := range identity {
			cost += "{" + c + "}"
		}
		id := fmt.Sprintf("card-%03d", i)
		name := fmt.Sprintf("Card %03d", i)
		var c *cards.Card
		switch i % 5 {
		case 0:
			c = spell(id, name, 2, identity, "Artifact", "{T}: Add one mana of any color.", cost)
		case 1:
			c = spell(id, name, 2, identity, "Instant", "Destroy target creature.", cost)
		case 2:
			c = spell(id, name, 3, identity, "Sorcery", "Draw two cards.", cost)
		case 3:
			c = spell(id, name, 3, identity, "Creature — Beast", "Trample", cost)
		default:
			c = spell(id, name, 1, identity, "Enchantment", "Scry 1.", cost)
		}
		pool = append(pool, c)
	}
	return pool
}

func assertInvariants(t *testing.T, a *Assembly) {
	t.Helper()
	rules, err := Rules(a.Format)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, s := range a.Slots {
		if seen[s.CardID] {
			t.Errorf("duplicate slot for %s", s.CardID)
		}
		seen[s.CardID] = true

		if s.Quantity < 1 {
			t.Errorf("%s has quantity %d", s.Name, s.Quantity)
		}
		if s.Card != nil && !s.Card.IsBasicLand() && s.Quantity > rules.CopyLimit {
			t.Errorf("%s has %d copies, limit %d", s.Name, s.Quantity, rules.CopyLimit)
		}
		if s.Card != nil && !cards.IsColorSubset(s.Card.ColorIdentity, a.ColorIdentity) {
			t.Errorf("%s identity %v outside %v", s.Name, s.Card.ColorIdentity, a.ColorIdentity)
		}
	}
	if a.Complete && a.TotalCards() != a.TargetSize {
		t.Errorf("complete deck has %d cards, want %d", a.TotalCards(), a.TargetSize)
	}
}

func TestBuild_MultiplesRG(t *testing.T) {
	rg := []string{"R", "G"}
	pool := nonlandPool(200, [][]string{{"R"}, {"G"}, rg})
	pool = append(pool, basic("mountain", "Mountain", "R"), basic("forest", "Forest", "G"))
	for i := 0; i < 18; i++ {
		pool = append(pool, dual(fmt.Sprintf("dual-%02d", i), fmt.Sprintf("Rootbound Crag %02d", i), "R", "G"))
	}

	b := NewBuilder(DefaultConfig())
	a, err := b.Build(&Request{ColorIdentity: rg, Format: FormatMultiples, Pool: pool})
	require.NoError(t, err)

	assert.True(t, a.Complete, "shortfalls: %v warnings: %v", a.Shortfalls, a.Warnings)
	assert.NoError(t, a.Insufficiency())
	assert.Equal(t, 60, a.TotalCards())
	assert.GreaterOrEqual(t, a.LandCount(), 22)
	assert.LessOrEqual(t, a.LandCount(), 26)
	assert.Equal(t, 0.40, a.LandRatio)
	assertInvariants(t, a)

	for _, role := range []Role{RoleRamp, RoleRemoval, RoleCardDraw, RoleThreats, RoleUtility} {
		assert.NotEmpty(t, a.SlotsByRole(role), "no %s slots", role)
	}

	// duals are capped at 30% of the 24 lands needed
	dualCount := 0
	for _, s := range a.SlotsByRole(RoleDualLand) {
		dualCount += s.Quantity
	}
	assert.Equal(t, 7, dualCount)
}

func TestBuild_SingletonHundred(t *testing.T) {
	wubrg := [][]string{{"W"}, {"U"}, {"W", "U"}}
	pool := nonlandPool(150, wubrg)
	pool = append(pool, basic("plains", "Plains", "W"), basic("island", "Island", "U"))
	for i := 0; i < 20; i++ {
		pool = append(pool, dual(fmt.Sprintf("dual-%02d", i), fmt.Sprintf("Hallowed Fountain %02d", i), "W", "U"))
	}
	pool = append(pool,
		cards.NewCard("u1", "Mystic Sanctuary Variant", 0, nil, "Land", "{T}: Add {C}. {2}, {T}: Scry 1."),
		cards.NewCard("u2", "Radiant Fountain", 0, nil, "Land", "When this land enters, you gain 2 life."),
	)

	b := NewBuilder(DefaultConfig())
	a, err := b.Build(&Request{ColorIdentity: []string{"W", "U"}, Format: FormatSingleton, Pool: pool})
	require.NoError(t, err)

	assert.True(t, a.Complete, "shortfalls: %v", a.Shortfalls)
	assert.Equal(t, 100, a.TotalCards())
	assertInvariants(t, a)
	assert.Len(t, a.SlotsByRole(RoleUtilityLand), 2)

	for _, s := range a.Slots {
		if s.Role != RoleBasicLand && s.Quantity != 1 {
			t.Errorf("%s (%s) has quantity %d in singleton", s.Name, s.Role, s.Quantity)
		}
	}
}

func TestBuild_GenericFill(t *testing.T) {
	pool := nonlandPool(150, [][]string{{"B"}})
	pool = append(pool, basic("swamp", "Swamp", "B"))

	cfg := DefaultConfig()
	cfg.GenericFill = true
	a, err := NewBuilder(cfg).Build(&Request{ColorIdentity: []string{"B"}, Format: FormatSingleton, Pool: pool})
	require.NoError(t, err)

	assert.Equal(t, 100, a.TotalCards())
	assert.Equal(t, 38, a.LandCount())
	assert.NotEmpty(t, a.SlotsByRole(RoleGeneric))
}

func TestBuild_ComboPieces(t *testing.T) {
	altar := spell("altar", "Phyrexian Altar", 3, nil, "Artifact", "Sacrifice a creature: Add one mana of any color.", "{3}")
	scholar := spell("scholar", "Morbid Scholar", 3, []string{"B"}, "Creature — Human", "Whenever a creature dies, draw a card.", "{2}{B}")
	offColor := spell("blue", "Blue Piece", 2, []string{"U"}, "Creature", "Flying", "{1}{U}")
	unknown := &cards.Card{Name: "Imagined Card"}

	selected := []*combos.ComboMatch{
		{Cards: []*cards.Card{altar, scholar}},
		{Cards: []*cards.Card{scholar, offColor}},
		{Cards: []*cards.Card{altar, unknown}},
	}

	pool := append(nonlandPool(100, [][]string{{"B"}}), basic("swamp", "Swamp", "B"))
	a, err := NewBuilder(DefaultConfig()).Build(&Request{
		Combos:        selected,
		ColorIdentity: []string{"B"},
		Format:        FormatMultiples,
		Pool:          pool,
	})
	require.NoError(t, err)

	pieces := a.SlotsByRole(RoleComboPiece)
	require.Len(t, pieces, 2)
	assert.Equal(t, "Phyrexian Altar", pieces[0].Name)
	assert.Equal(t, 4, pieces[0].Quantity)
	assert.Equal(t, "Morbid Scholar", pieces[1].Name)
	assert.Len(t, a.Warnings, 2)
	assert.True(t, a.Complete)
	assertInvariants(t, a)
}

func TestBuild_NoLands(t *testing.T) {
	pool := nonlandPool(200, [][]string{{"R"}, {"G"}})

	a, err := NewBuilder(DefaultConfig()).Build(&Request{ColorIdentity: []string{"R", "G"}, Format: FormatMultiples, Pool: pool})
	require.NoError(t, err)

	assert.False(t, a.Complete)
	assert.Equal(t, 36, a.TotalCards())
	err = a.Insufficiency()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientPool))

	var lands *Shortfall
	for i := range a.Shortfalls {
		if a.Shortfalls[i].Role == "lands" {
			lands = &a.Shortfalls[i]
		}
	}
	require.NotNil(t, lands)
	assert.Equal(t, 24, lands.Needed)
	assert.Equal(t, 0, lands.Filled)
}

func TestBuild_Colorless(t *testing.T) {
	pool := nonlandPool(200, [][]string{{}})
	wastes := cards.NewCard("wastes", "Wastes", 0, nil, "Basic Land", "({T}: Add {C}.)")
	forest := basic("forest", "Forest", "G")

	a, err := NewBuilder(DefaultConfig()).Build(&Request{Format: FormatMultiples, Pool: append(pool, wastes, forest)})
	require.NoError(t, err)

	assert.True(t, a.Complete, "shortfalls: %v warnings: %v", a.Shortfalls, a.Warnings)
	assert.Equal(t, 60, a.TotalCards())
	basics := a.SlotsByRole(RoleBasicLand)
	require.Len(t, basics, 1)
	assert.Equal(t, "Wastes", basics[0].Name)
	assert.Equal(t, 24, basics[0].Quantity)
	assertInvariants(t, a)

	a, err = NewBuilder(DefaultConfig()).Build(&Request{Format: FormatMultiples, Pool: append(pool, forest)})
	require.NoError(t, err)

	assert.False(t, a.Complete)
	assert.Equal(t, 36, a.TotalCards())
	var lands *Shortfall
	for i := range a.Shortfalls {
		if a.Shortfalls[i].Role == "lands" {
			lands = &a.Shortfalls[i]
		}
	}
	require.NotNil(t, lands)
	assert.Equal(t, 24, lands.Needed)
	assert.Equal(t, 0, lands.Filled)
	assert.Contains(t, a.Warnings, "pool lacks 24 of 24 lands for colors C")
}

func TestBuild_DualOverflow(t *testing.T) {
	pool := nonlandPool(200, [][]string{{"R"}, {"G"}})
	pool = append(pool, dual("d1", "Cinder Glade", "R", "G"), dual("d2", "Stomping Ground", "R", "G"))

	a, err := NewBuilder(DefaultConfig()).Build(&Request{ColorIdentity: []string{"R", "G"}, Format: FormatMultiples, Pool: pool})
	require.NoError(t, err)

	duals := a.SlotsByRole(RoleDualLand)
	require.Len(t, duals, 2)
	assert.Equal(t, 4, duals[0].Quantity)
	assert.Equal(t, 4, duals[1].Quantity)
	assert.False(t, a.Complete)
	assert.Equal(t, 44, a.TotalCards())
}

func TestBuild_MissingBasicRedistributed(t *testing.T) {
	pool := nonlandPool(200, [][]string{{"R"}, {"G"}})
	pool = append(pool, basic("forest", "Forest", "G"))

	a, err := NewBuilder(DefaultConfig()).Build(&Request{ColorIdentity: []string{"R", "G"}, Format: FormatMultiples, Pool: pool})
	require.NoError(t, err)

	assert.True(t, a.Complete, "shortfalls: %v", a.Shortfalls)
	basics := a.SlotsByRole(RoleBasicLand)
	require.Len(t, basics, 1)
	assert.Equal(t, "Forest", basics[0].Name)
	assert.Equal(t, 24, basics[0].Quantity)
}

func TestBuild_CategoryShortfallAbsorbedByLands(t *testing.T) {
	var pool []*cards.Card
	for i := 0; i < 10; i++ {
		pool = append(pool, spell(fmt.Sprintf("t%d", i), fmt.Sprintf("Bear %d", i), 2, []string{"G"}, "Creature — Bear", "", "{1}{G}"))
	}
	pool = append(pool, basic("forest", "Forest", "G"))

	a, err := NewBuilder(DefaultConfig()).Build(&Request{ColorIdentity: []string{"G"}, Format: FormatMultiples, Pool: pool})
	require.NoError(t, err)

	assert.True(t, a.Complete)
	assert.Equal(t, 60, a.TotalCards())
	assert.NotEmpty(t, a.Shortfalls)
	assert.Greater(t, a.LandCount(), 24)
}

func TestBuild_InvalidRequest(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	_, err := b.Build(nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = b.Build(&Request{Format: "pauper-cube"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"commander", FormatSingleton, false},
		{"EDH", FormatSingleton, false},
		{" standard ", FormatMultiples, false},
		{"modern", FormatMultiples, false},
		{"multiples", FormatMultiples, false},
		{"vintage cube", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRules(t *testing.T) {
	single, err := Rules(FormatSingleton)
	require.NoError(t, err)
	assert.Equal(t, 100, single.TargetSize)
	assert.Equal(t, 1, single.CopyLimit)
	assert.Equal(t, 62, single.NonLandCap())

	multi, err := Rules(FormatMultiples)
	require.NoError(t, err)
	assert.Equal(t, 60, multi.TargetSize)
	assert.Equal(t, 4, multi.CopyLimit)
	assert.Equal(t, 36, multi.NonLandCap())

	_, err = Rules("")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestQuotas(t *testing.T) {
	q, err := Quotas(FormatMultiples)
	require.NoError(t, err)
	require.Len(t, q, 5)

	total := 0
	for _, quota := range q {
		total += quota.Count * 3
	}
	assert.Equal(t, 36, total)

	assert.Equal(t, 53, DefaultConfig().SingletonQuotas.Total())
	assert.NoError(t, DefaultConfig().Validate())
}

func TestSplitBasics(t *testing.T) {
	s := &build{
		identity: []string{"R", "G"},
		assembly: &Assembly{Slots: []Slot{
			{CardID: "a", Quantity: 3, Card: spell("a", "A", 2, []string{"R"}, "Creature", "", "{R}{R}")},
			{CardID: "b", Quantity: 1, Card: spell("b", "B", 2, []string{"G"}, "Creature", "", "{1}{G}")},
		}},
	}

	// 6 red pips, 1 green: 10 * 6/7 = 8, 10 * 1/7 = 1, remainder to red
	allocs := splitBasics(s, 10)
	require.Len(t, allocs, 2)
	assert.Equal(t, basicAllocation{color: "R", count: 9}, allocs[0])
	assert.Equal(t, basicAllocation{color: "G", count: 1}, allocs[1])

	s.assembly.Slots = nil
	even := splitBasics(s, 5)
	assert.Equal(t, []basicAllocation{{"R", 3}, {"G", 2}}, even)

	s.identity = []string{}
	assert.Equal(t, []basicAllocation{{colorless, 7}}, splitBasics(s, 7))
	assert.Nil(t, splitBasics(s, 0))
}
