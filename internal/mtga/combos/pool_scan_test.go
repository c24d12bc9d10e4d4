package combos

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// stubSuggester records the request and returns canned results.
type stubSuggester struct {
	combos []SuggestedCombo
	err    error
	calls  int
	last   SuggestionRequest
}

func (s *stubSuggester) SuggestCombos(_ context.Context, req SuggestionRequest) ([]SuggestedCombo, error) {
	s.calls++
	s.last = req
	return s.combos, s.err
}

func sacrificePool() []*cards.Card {
	return []*cards.Card{
		cards.NewCard("seer", "Viscera Seer", 1, []string{"R"}, "Creature — Vampire Wizard", "Sacrifice a creature: Scry 1."),
		cards.NewCard("artist", "Goblin Artist", 2, []string{"G"}, "Creature — Goblin", "Whenever another creature dies, target opponent loses 1 life."),
		cards.NewCard("blue", "Blue Outlet", 1, []string{"U"}, "Creature", "Sacrifice a creature: Draw a card."),
		cards.NewCard("vanilla", "Grizzly Bears", 2, []string{"G"}, "Creature — Bear", ""),
	}
}

func TestFindPoolCombos_PatternScan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLocalResults = 0
	engine := NewEngine(cfg)

	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}}, sacrificePool())

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, "sacrifice_synergy", m.Category)
	assert.Equal(t, []string{"Viscera Seer", "Goblin Artist"}, m.CardNames())
	assert.Equal(t, 3, m.ManaCostTotal)
	assert.Equal(t, ReliabilityHigh, m.Reliability)
	assert.Equal(t, SourceLocal, m.Source)
}

func TestFindPoolCombos_IgnoresBasicLands(t *testing.T) {
	pool := []*cards.Card{
		cards.NewCard("forest", "Forest", 0, []string{"G"}, "Basic Land — Forest", "({T}: Add {G}.)"),
		cards.NewCard("mountain", "Mountain", 0, []string{"R"}, "Basic Land — Mountain", "({T}: Add {R}.)"),
		cards.NewCard("vanilla", "Grizzly Bears", 2, []string{"G"}, "Creature — Bear", ""),
	}
	cfg := DefaultConfig()
	cfg.MinLocalResults = 0
	cfg.BasicSynergyFallback = false
	engine := NewEngine(cfg)

	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}}, pool)
	assert.Empty(t, matches)

	pool = append(pool, sacrificePool()...)
	matches = engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}}, pool)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"Viscera Seer", "Goblin Artist"}, matches[0].CardNames())
}

func TestFindPoolCombos_PoolReliability(t *testing.T) {
	pool := []*cards.Card{
		cards.NewCard("a", "Outlet A", 4, []string{"B"}, "Creature", "Sacrifice a creature: Scry 1."),
		cards.NewCard("b", "Outlet B", 5, []string{"B"}, "Creature", "Sacrifice another creature: Draw a card."),
	}
	cfg := DefaultConfig()
	cfg.MinLocalResults = 0
	engine := NewEngine(cfg)

	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"B"}}, pool)
	m := findCategory(matches, "sacrifice_synergy")
	require.NotNil(t, m)
	assert.Equal(t, 9, m.ManaCostTotal)
	assert.Equal(t, ReliabilityMedium, m.Reliability)
}

func TestFindPoolCombos_Constraints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLocalResults = 0
	cfg.BasicSynergyFallback = false
	engine := NewEngine(cfg)

	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"no constraints", Request{Colors: []string{"R", "G"}}, 1},
		{"power floor excludes", Request{Colors: []string{"R", "G"}, PowerMin: 7}, 0},
		{"power ceiling excludes", Request{Colors: []string{"R", "G"}, PowerMax: 5}, 0},
		{"setup turns excludes", Request{Colors: []string{"R", "G"}, MaxSetupTurns: 1}, 0},
		{"setup turns allows", Request{Colors: []string{"R", "G"}, MaxSetupTurns: 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			got := engine.FindPoolCombos(context.Background(), &req, sacrificePool())
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d (%+v)", len(got), tt.want, got)
			}
		})
	}
}

func TestFindPoolCombos_BasicSynergyFallback(t *testing.T) {
	pool := []*cards.Card{
		cards.NewCard("1", "Alpha", 3, []string{"W"}, "Creature", "Vigilance"),
		cards.NewCard("2", "Beta", 1, []string{"W"}, "Creature", "Lifelink"),
		cards.NewCard("3", "Gamma", 2, []string{"W"}, "Creature", "Flying"),
		cards.NewCard("4", "Delta", 5, []string{"W"}, "Creature", "First strike"),
	}

	engine := NewEngine(DefaultConfig())
	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"W"}}, pool)
	require.Len(t, matches, 1)
	assert.Equal(t, BasicSynergyCategory, matches[0].Category)
	assert.Equal(t, []string{"Beta", "Gamma", "Alpha"}, matches[0].CardNames())

	cfg := DefaultConfig()
	cfg.BasicSynergyFallback = false
	engine = NewEngine(cfg)
	matches = engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"W"}}, pool)
	assert.Empty(t, matches)
}

func TestFindPoolCombos_Suggester(t *testing.T) {
	stub := &stubSuggester{combos: []SuggestedCombo{
		{Cards: []string{"Lonely Card"}},
		{Cards: []string{"goblin artist", "Viscera Seer"}, Category: "aristocrats"},
		{Cards: []string{"Pyre Hound", "Goblin Bombardment"}, Type: "nonsense", Description: "Fling the hound."},
		{Cards: []string{"Goblin Artist", "Grizzly Bears"}, PowerLevel: intPtr(12), Reliability: strPtr("HIGH"), SetupTurns: intPtr(3), ManaCostTotal: intPtr(4)},
	}}
	engine := NewEngine(DefaultConfig(), WithSuggester(stub))

	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}, Format: "standard"}, sacrificePool())

	require.Equal(t, 1, stub.calls)
	assert.Equal(t, []string{"R", "G"}, stub.last.Colors)
	assert.Equal(t, "standard", stub.last.Format)
	assert.Equal(t, [][]string{{"Viscera Seer", "Goblin Artist"}}, stub.last.Avoid)

	require.Len(t, matches, 3)
	assert.Equal(t, 10, matches[0].PowerLevel)
	assert.Equal(t, SourceGenerated, matches[0].Source)
	assert.Equal(t, ReliabilityHigh, matches[0].Reliability)
	assert.Equal(t, "Goblin Artist", matches[0].Cards[0].Name)

	assert.Equal(t, "sacrifice_synergy", matches[1].Category)
	assert.Equal(t, SourceLocal, matches[1].Source)

	gen := matches[2]
	assert.Equal(t, GeneratedCategory, gen.Category)
	assert.Equal(t, SynergyEngine, gen.SynergyType)
	assert.Equal(t, DefaultSuggestedPower, gen.PowerLevel)
	assert.Equal(t, ReliabilityMedium, gen.Reliability)
	assert.Equal(t, DefaultSuggestedSetupTurns, gen.SetupTurns)
	assert.Equal(t, 0, gen.ManaCostTotal)
	assert.Equal(t, []string{"Fling the hound."}, gen.Explanation)
	assert.Empty(t, gen.Cards[0].ID, "unknown cards stay name-only")
}

func TestFindPoolCombos_SuggesterFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stub := &stubSuggester{err: errors.New("connection refused")}
	engine := NewEngine(DefaultConfig(), WithSuggester(stub), WithLogger(zap.New(core)))

	matches := engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}}, sacrificePool())

	require.Len(t, matches, 1)
	assert.Equal(t, "sacrifice_synergy", matches[0].Category)
	assert.Equal(t, 1, logs.FilterMessage("combo suggester failed, using local results only").Len())
}

func TestFindPoolCombos_SuggesterSkippedWhenEnoughLocal(t *testing.T) {
	stub := &stubSuggester{}
	cfg := DefaultConfig()
	cfg.MinLocalResults = 1
	engine := NewEngine(cfg, WithSuggester(stub))

	engine.FindPoolCombos(context.Background(), &Request{Colors: []string{"R", "G"}}, sacrificePool())
	assert.Equal(t, 0, stub.calls)
}

func TestCoerceSuggestion(t *testing.T) {
	byName := cards.IndexByName(sacrificePool())

	tests := []struct {
		name      string
		in        SuggestedCombo
		wantOK    bool
		wantPower int
		wantRel   Reliability
		wantSetup int
	}{
		{"defaults", SuggestedCombo{Cards: []string{"A", "B"}}, true, 5, ReliabilityMedium, 5},
		{"power clamped high", SuggestedCombo{Cards: []string{"A", "B"}, PowerLevel: intPtr(42)}, true, 10, ReliabilityMedium, 5},
		{"power clamped low", SuggestedCombo{Cards: []string{"A", "B"}, PowerLevel: intPtr(-3)}, true, 1, ReliabilityMedium, 5},
		{"bad reliability", SuggestedCombo{Cards: []string{"A", "B"}, Reliability: strPtr("bogus")}, true, 5, ReliabilityMedium, 5},
		{"low reliability", SuggestedCombo{Cards: []string{"A", "B"}, Reliability: strPtr(" Low ")}, true, 5, ReliabilityLow, 5},
		{"mana total overrides stated reliability", SuggestedCombo{Cards: []string{"A", "B"}, Reliability: strPtr("high"), ManaCostTotal: intPtr(10)}, true, 5, ReliabilityLow, 5},
		{"mana total without reliability", SuggestedCombo{Cards: []string{"A", "B"}, ManaCostTotal: intPtr(3)}, true, 5, ReliabilityHigh, 5},
		{"negative mana total ignored", SuggestedCombo{Cards: []string{"A", "B"}, Reliability: strPtr("low"), ManaCostTotal: intPtr(-1)}, true, 5, ReliabilityLow, 5},
		{"zero setup defaulted", SuggestedCombo{Cards: []string{"A", "B"}, SetupTurns: intPtr(0)}, true, 5, ReliabilityMedium, 5},
		{"one card", SuggestedCombo{Cards: []string{"A"}}, false, 0, "", 0},
		{"duplicate names collapse", SuggestedCombo{Cards: []string{"A", " a ", ""}}, false, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := DefaultConfig().CoerceSuggestion(tt.in, byName)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.PowerLevel != tt.wantPower {
				t.Errorf("PowerLevel = %d, want %d", m.PowerLevel, tt.wantPower)
			}
			if m.Reliability != tt.wantRel {
				t.Errorf("Reliability = %s, want %s", m.Reliability, tt.wantRel)
			}
			if m.SetupTurns != tt.wantSetup {
				t.Errorf("SetupTurns = %d, want %d", m.SetupTurns, tt.wantSetup)
			}
			if m.Source != SourceGenerated {
				t.Errorf("Source = %s, want generated", m.Source)
			}
		})
	}
}

func TestCoerceSuggestion_ResolvesPoolCards(t *testing.T) {
	pool := sacrificePool()
	m, ok := DefaultConfig().CoerceSuggestion(SuggestedCombo{Cards: []string{"VISCERA SEER", "Goblin Artist"}}, cards.IndexByName(pool))
	require.True(t, ok)
	assert.Same(t, pool[0], m.Cards[0])
	assert.Same(t, pool[1], m.Cards[1])
}
