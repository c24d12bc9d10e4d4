package combos

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

func findCategory(matches []*ComboMatch, category string) *ComboMatch {
	for _, m := range matches {
		if m.Category == category {
			return m
		}
	}
	return nil
}

func TestFindCombosForCard_SacrificeEngine(t *testing.T) {
	altar := cards.NewCard("altar", "Phyrexian Altar", 3, nil, "Artifact", "Sacrifice a creature: Add one mana of any color.")
	scholar := cards.NewCard("scholar", "Morbid Scholar", 3, []string{"B"}, "Creature — Human Cleric", "Whenever a creature dies, draw a card.")

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(altar, []*cards.Card{scholar}, 10)

	m := findCategory(matches, "sacrifice_engine")
	require.NotNil(t, m, "expected a sacrifice_engine combo, got %+v", matches)
	assert.Equal(t, SynergyEngine, m.SynergyType)
	assert.Equal(t, []string{"Phyrexian Altar", "Morbid Scholar"}, m.CardNames())
	assert.Equal(t, 6, m.ManaCostTotal)
	assert.Equal(t, ReliabilityMedium, m.Reliability)
	assert.Equal(t, 3, m.SetupTurns)
	assert.Equal(t, SourceLocal, m.Source)
	assert.Contains(t, m.KeywordsMatched, "sacrifice a creature")
	assert.Contains(t, m.KeywordsMatched, "whenever a creature dies")
	assert.NotEmpty(t, m.ID)
}

func TestFindCombosForCard_SkipsBasicLands(t *testing.T) {
	follower := cards.NewCard("follower", "Kiora's Follower", 2, []string{"G", "U"}, "Creature — Merfolk", "{T}: Untap another target permanent.")
	forest := cards.NewCard("forest", "Forest", 0, []string{"G"}, "Basic Land — Forest", "({T}: Add {G}.)")
	elves := cards.NewCard("elves", "Llanowar Elves", 1, []string{"G"}, "Creature — Elf Druid", "{T}: Add {G}.")

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(follower, []*cards.Card{forest, elves}, 10)

	m := findCategory(matches, "infinite_mana")
	require.NotNil(t, m, "expected an infinite_mana combo, got %+v", matches)
	assert.Equal(t, []string{"Kiora's Follower", "Llanowar Elves"}, m.CardNames())
	for _, m := range matches {
		assert.NotContains(t, m.CardNames(), "Forest")
	}
}

func TestFindCombosForCard_PartnerRanking(t *testing.T) {
	seer := cards.NewCard("seer", "Viscera Seer", 1, []string{"B"}, "Creature — Vampire Wizard", "Sacrifice a creature: Scry 1.")
	var pool []*cards.Card
	for mv := 6; mv >= 1; mv-- {
		pool = append(pool, cards.NewCard(
			fmt.Sprintf("p%d", mv), fmt.Sprintf("Payoff %d", mv), mv, []string{"B"},
			"Creature — Human Cleric", "Whenever a creature dies, each opponent loses 1 life."))
	}

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(seer, pool, 10)

	require.Len(t, matches, 5)
	for i, m := range matches {
		wantPartner := fmt.Sprintf("Payoff %d", i+1)
		if m.Cards[1].Name != wantPartner {
			t.Errorf("matches[%d] partner = %s, want %s", i, m.Cards[1].Name, wantPartner)
		}
		if m.PowerLevel != 7-i {
			t.Errorf("matches[%d].PowerLevel = %d, want %d", i, m.PowerLevel, 7-i)
		}
		if m.Cards[0] != seer {
			t.Errorf("matches[%d] target should come first", i)
		}
	}
}

func TestFindCombosForCard_ReliabilityMonotonic(t *testing.T) {
	seer := cards.NewCard("seer", "Viscera Seer", 1, []string{"B"}, "Creature — Vampire Wizard", "Sacrifice a creature: Scry 1.")
	var pool []*cards.Card
	for mv := 0; mv <= 11; mv++ {
		pool = append(pool, cards.NewCard(
			fmt.Sprintf("p%d", mv), fmt.Sprintf("Payoff %02d", mv), mv, []string{"B"},
			"Creature", "Whenever a creature dies, draw a card."))
	}

	cfg := DefaultConfig()
	cfg.PartnersPerPattern = 20
	engine := NewEngine(cfg)
	matches := engine.FindCombosForCard(seer, pool, 50)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		var want Reliability
		switch {
		case m.ManaCostTotal <= 4:
			want = ReliabilityHigh
		case m.ManaCostTotal <= 7:
			want = ReliabilityMedium
		default:
			want = ReliabilityLow
		}
		if m.Reliability != want {
			t.Errorf("total %d rated %s, want %s", m.ManaCostTotal, m.Reliability, want)
		}
		if m.PowerLevel < 1 {
			t.Errorf("PowerLevel = %d, want >= 1", m.PowerLevel)
		}
		if len(m.Cards) < 2 {
			t.Errorf("combo with %d cards", len(m.Cards))
		}
	}
}

func TestFindCombosForCard_Filters(t *testing.T) {
	seer := cards.NewCard("seer", "Viscera Seer", 8, []string{"R"}, "Creature", "Sacrifice a creature: Scry 1.")
	offColor := cards.NewCard("blue", "Blue Payoff", 1, []string{"U"}, "Creature", "Whenever a creature dies, draw a card.")
	tooExpensive := cards.NewCard("big", "Big Payoff", 5, []string{"R"}, "Creature", "Whenever a creature dies, draw a card.")
	colorless := cards.NewCard("cl", "Colorless Payoff", 2, nil, "Artifact", "Whenever a creature dies, draw a card.")

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(seer, []*cards.Card{offColor, tooExpensive, colorless, seer}, 10)

	require.Len(t, matches, 1)
	assert.Equal(t, "Colorless Payoff", matches[0].Cards[1].Name)
}

func TestFindCombosForCard_TypeSynergy(t *testing.T) {
	thopter := cards.NewCard("a1", "Ornithopter", 0, nil, "Artifact Creature — Thopter", "Flying")
	frogmite := cards.NewCard("a2", "Frogmite", 4, nil, "Artifact Creature — Frog", "Affinity for artifacts")

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(thopter, []*cards.Card{frogmite}, 5)

	m := findCategory(matches, "artifact_synergy")
	require.NotNil(t, m, "expected artifact_synergy, got %+v", matches)
	assert.Equal(t, ReliabilityHigh, m.Reliability)
	assert.Contains(t, m.KeywordsMatched, "affinity")
}

func TestFindCombosForCard_Tribal(t *testing.T) {
	chieftain := cards.NewCard("g1", "Goblin Chieftain", 3, []string{"R"}, "Creature — Goblin", "Haste. Other Goblin creatures you control get +1/+1 and have haste.")
	raider := cards.NewCard("g2", "Goblin Raider", 2, []string{"R"}, "Creature — Goblin Warrior", "This creature can't block.")

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(raider, []*cards.Card{chieftain}, 5)

	m := findCategory(matches, TribalCategory)
	require.NotNil(t, m, "expected tribal combo, got %+v", matches)
	assert.Equal(t, []string{"goblin"}, m.KeywordsMatched)
}

func TestFindCombosForCard_Truncates(t *testing.T) {
	seer := cards.NewCard("seer", "Viscera Seer", 1, []string{"B"}, "Creature", "Sacrifice a creature: Scry 1.")
	var pool []*cards.Card
	for i := 0; i < 5; i++ {
		pool = append(pool, cards.NewCard(fmt.Sprintf("p%d", i), fmt.Sprintf("Payoff %d", i), 2, []string{"B"}, "Creature", "Whenever a creature dies, draw a card."))
	}

	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(seer, pool, 2)
	require.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].PowerLevel, matches[1].PowerLevel)
}

func TestFindCombosForCard_NilTarget(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	matches := engine.FindCombosForCard(nil, nil, 0)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestComboID_Deterministic(t *testing.T) {
	a := cards.NewCard("a", "A", 1, nil, "Artifact", "")
	b := cards.NewCard("b", "B", 1, nil, "Artifact", "")

	id1 := ComboID([]*cards.Card{a, b}, "sacrifice_engine")
	id2 := ComboID([]*cards.Card{a, b}, "sacrifice_engine")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, ComboID([]*cards.Card{a, b}, "aristocrats"))
	assert.NotEqual(t, id1, ComboID([]*cards.Card{b, a}, "sacrifice_engine"))
}

func TestDiscover_RequiresCriteria(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	_, err := engine.Discover(context.Background(), &Request{}, nil)
	assert.True(t, errors.Is(err, ErrNoSearchCriteria))

	_, err = engine.Discover(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrNoSearchCriteria))
}

func TestDiscover_Dispatch(t *testing.T) {
	altar := cards.NewCard("altar", "Phyrexian Altar", 3, nil, "Artifact", "Sacrifice a creature: Add one mana of any color.")
	scholar := cards.NewCard("scholar", "Morbid Scholar", 3, []string{"B"}, "Creature", "Whenever a creature dies, draw a card.")
	pool := []*cards.Card{altar, scholar}

	engine := NewEngine(DefaultConfig())

	byTarget, err := engine.Discover(context.Background(), &Request{Target: altar}, pool)
	require.NoError(t, err)
	assert.NotNil(t, findCategory(byTarget, "sacrifice_engine"))

	byColor, err := engine.Discover(context.Background(), &Request{Colors: []string{"B"}}, pool)
	require.NoError(t, err)
	assert.NotEmpty(t, byColor)
}

func TestDiscoverAll(t *testing.T) {
	altar := cards.NewCard("altar", "Phyrexian Altar", 3, nil, "Artifact", "Sacrifice a creature: Add one mana of any color.")
	seer := cards.NewCard("seer", "Viscera Seer", 1, []string{"B"}, "Creature", "Sacrifice a creature: Scry 1.")
	scholar := cards.NewCard("scholar", "Morbid Scholar", 3, []string{"B"}, "Creature", "Whenever a creature dies, draw a card.")
	pool := []*cards.Card{altar, seer, scholar}

	engine := NewEngine(DefaultConfig())
	results, err := engine.DiscoverAll(context.Background(), []*cards.Card{altar, seer}, pool, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, target := range []*cards.Card{altar, seer} {
		want := engine.FindCombosForCard(target, pool, 10)
		require.Len(t, results[i], len(want))
		for j := range want {
			assert.Equal(t, want[j].ID, results[i][j].ID)
		}
	}
}

func TestDiscoverAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(DefaultConfig())
	target := cards.NewCard("seer", "Viscera Seer", 1, []string{"B"}, "Creature", "Sacrifice a creature: Scry 1.")
	_, err := engine.DiscoverAll(ctx, []*cards.Card{target}, nil, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortMatches_LocalBeforeGenerated(t *testing.T) {
	matches := []*ComboMatch{
		{ID: "gen", PowerLevel: 6, Source: SourceGenerated},
		{ID: "low", PowerLevel: 2, Source: SourceLocal},
		{ID: "local", PowerLevel: 6, Source: SourceLocal},
		{ID: "high", PowerLevel: 9, Source: SourceGenerated},
	}
	sortMatches(matches)

	var got []string
	for _, m := range matches {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{"high", "local", "gen", "low"}, got)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MediumReliabilityMax = 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PoolCardsPerPattern = 1
	assert.Error(t, cfg.Validate())
}

func TestPatternTables(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range Patterns() {
		if seen[p.Category] {
			t.Errorf("duplicate category %s", p.Category)
		}
		seen[p.Category] = true
		if p.PowerLevel < 1 || p.PowerLevel > 10 {
			t.Errorf("%s: power %d out of range", p.Category, p.PowerLevel)
		}
		if len(p.TargetKeywords) == 0 || len(p.PartnerKeywords) == 0 {
			t.Errorf("%s: missing keywords", p.Category)
		}
		if _, ok := ParseSynergyType(string(p.SynergyType)); !ok {
			t.Errorf("%s: bad synergy type %q", p.Category, p.SynergyType)
		}
	}
	if _, ok := PatternByCategory("sacrifice_engine"); !ok {
		t.Error("sacrifice_engine pattern missing")
	}
	assert.Len(t, PoolPatterns(), 5)
	assert.NotEmpty(t, TypeSynergies())
}
