package combos

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// ErrNoSearchCriteria is returned when a request names neither a target card nor colors.
var ErrNoSearchCriteria = errors.New("combo search needs a target card or a color filter")

// Config holds the tunable discovery thresholds.
type Config struct {
	// Combined mana value at or below which a combo is high / medium reliability.
	HighReliabilityMax   int `toml:"high_reliability_max"`
	MediumReliabilityMax int `toml:"medium_reliability_max"`

	// Pool-scan combos are high reliability at or below this total, medium above.
	PoolHighReliabilityMax int `toml:"pool_high_reliability_max"`

	// Target plus partner may not exceed this combined mana value.
	MaxComboManaValue int `toml:"max_combo_mana_value"`

	PartnersPerPattern  int `toml:"partners_per_pattern"`
	PoolCardsPerPattern int `toml:"pool_cards_per_pattern"`

	// The suggester is consulted when a pool scan finds fewer local combos.
	MinLocalResults int `toml:"min_local_results"`

	// Emit a placeholder combo when a pool scan would otherwise be empty.
	BasicSynergyFallback bool `toml:"basic_synergy_fallback"`

	DefaultMaxResults int `toml:"default_max_results"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		HighReliabilityMax:     4,
		MediumReliabilityMax:   7,
		PoolHighReliabilityMax: 6,
		MaxComboManaValue:      12,
		PartnersPerPattern:     5,
		PoolCardsPerPattern:    4,
		MinLocalResults:        3,
		BasicSynergyFallback:   true,
		DefaultMaxResults:      10,
	}
}

// Validate checks the thresholds for consistency.
func (c Config) Validate() error {
	if c.HighReliabilityMax < 0 {
		return fmt.Errorf("high_reliability_max must be non-negative, got %d", c.HighReliabilityMax)
	}
	if c.MediumReliabilityMax < c.HighReliabilityMax {
		return fmt.Errorf("medium_reliability_max (%d) must be >= high_reliability_max (%d)", c.MediumReliabilityMax, c.HighReliabilityMax)
	}
	if c.MaxComboManaValue <= 0 {
		return fmt.Errorf("max_combo_mana_value must be positive, got %d", c.MaxComboManaValue)
	}
	if c.PartnersPerPattern <= 0 || c.PoolCardsPerPattern < 2 {
		return fmt.Errorf("partners_per_pattern must be positive and pool_cards_per_pattern at least 2")
	}
	if c.DefaultMaxResults <= 0 {
		return fmt.Errorf("default_max_results must be positive, got %d", c.DefaultMaxResults)
	}
	return nil
}

// Reliability rates a combined mana value.
func (c Config) Reliability(manaTotal int) Reliability {
	switch {
	case manaTotal <= c.HighReliabilityMax:
		return ReliabilityHigh
	case manaTotal <= c.MediumReliabilityMax:
		return ReliabilityMedium
	default:
		return ReliabilityLow
	}
}

// PoolReliability rates the combined mana value of a pool-scan combo.
func (c Config) PoolReliability(manaTotal int) Reliability {
	if manaTotal <= c.PoolHighReliabilityMax {
		return ReliabilityHigh
	}
	return ReliabilityMedium
}

// Request describes a discovery call. Target switches to target-card mode;
// otherwise Colors selects a pool-wide scan.
type Request struct {
	Target *cards.Card
	Colors []string
	Format string

	// Pool-scan constraints. Zero means unbounded.
	PowerMin      int
	PowerMax      int
	MaxSetupTurns int
	MaxCards      int

	MaxResults   int
	CreativeMode bool
}

// Engine discovers combos. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	cfg       Config
	parser    *oracle.Parser
	suggester Suggester
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSuggester plugs in a generative combo collaborator.
func WithSuggester(s Suggester) Option {
	return func(e *Engine) {
		e.suggester = s
	}
}

// WithParser shares an oracle parser cache with the engine.
func WithParser(p *oracle.Parser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = oracle.NewParser(0)
	}
	return e
}

// Config returns the engine thresholds.
func (e *Engine) Config() Config {
	return e.cfg
}

// Discover validates the request and runs a target or pool-wide search.
func (e *Engine) Discover(ctx context.Context, req *Request, pool []*cards.Card) ([]*ComboMatch, error) {
	if req == nil || (req.Target == nil && len(req.Colors) == 0) {
		return nil, ErrNoSearchCriteria
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Target != nil {
		candidates := pool
		if req.Format != "" {
			candidates = cards.Predicate{Format: req.Format}.Filter(pool)
		}
		return e.FindCombosForCard(req.Target, candidates, req.MaxResults), nil
	}
	return e.FindPoolCombos(ctx, req, pool), nil
}

// DiscoverAll runs FindCombosForCard for every target in parallel. The result
// is indexed like targets.
func (e *Engine) DiscoverAll(ctx context.Context, targets []*cards.Card, pool []*cards.Card, maxResults int) ([][]*ComboMatch, error) {
	results := make([][]*ComboMatch, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.FindCombosForCard(target, pool, maxResults)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discover combos: %w", err)
	}
	return results, nil
}

// partner is a pool card that satisfied a pattern's partner keywords.
type partner struct {
	card     *cards.Card
	keywords []string
}

// FindCombosForCard matches target against every synergy pattern and the
// type-based rules, returning at most maxResults combos ordered by power.
func (e *Engine) FindCombosForCard(target *cards.Card, pool []*cards.Card, maxResults int) []*ComboMatch {
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultMaxResults
	}
	if target == nil {
		return []*ComboMatch{}
	}

	candidates := make([]*cards.Card, 0, len(pool))
	for _, c := range pool {
		if c == nil || c == target || (c.ID != "" && c.ID == target.ID) || c.IsBasicLand() {
			continue
		}
		if !cards.ColorsOverlap(target.ColorIdentity, c.ColorIdentity) {
			continue
		}
		if target.CMC()+c.CMC() > e.cfg.MaxComboManaValue {
			continue
		}
		candidates = append(candidates, c)
	}

	targetAnalysis := e.parser.Analyze(target)

	var matches []*ComboMatch
	for _, pattern := range synergyPatterns {
		targetKws := oracle.CardKeywords(target, pattern.TargetKeywords)
		if len(targetKws) == 0 {
			continue
		}

		var partners []partner
		for _, c := range candidates {
			if kws := oracle.CardKeywords(c, pattern.PartnerKeywords); len(kws) > 0 {
				partners = append(partners, partner{card: c, keywords: kws})
			}
		}
		sort.SliceStable(partners, func(i, j int) bool {
			if len(partners[i].keywords) != len(partners[j].keywords) {
				return len(partners[i].keywords) > len(partners[j].keywords)
			}
			if partners[i].card.CMC() != partners[j].card.CMC() {
				return partners[i].card.CMC() < partners[j].card.CMC()
			}
			return partners[i].card.Name < partners[j].card.Name
		})
		if len(partners) > e.cfg.PartnersPerPattern {
			partners = partners[:e.cfg.PartnersPerPattern]
		}

		for rank, p := range partners {
			pieces := []*cards.Card{target, p.card}
			total := totalManaValue(pieces)
			explanation := []string{
				pattern.Explanation,
				fmt.Sprintf("%s provides: %s", target.Name, strings.Join(targetKws, ", ")),
				fmt.Sprintf("%s provides: %s", p.card.Name, strings.Join(p.keywords, ", ")),
			}
			if shared := sharedTags(targetAnalysis, e.parser.Analyze(p.card)); len(shared) > 0 {
				explanation = append(explanation, "Shared synergy tags: "+strings.Join(shared, ", "))
			}
			matches = append(matches, &ComboMatch{
				ID:              ComboID(pieces, pattern.Category),
				Cards:           pieces,
				Category:        pattern.Category,
				SynergyType:     pattern.SynergyType,
				PowerLevel:      max(1, pattern.PowerLevel-rank),
				Reliability:     e.cfg.Reliability(total),
				ManaCostTotal:   total,
				SetupTurns:      setupTurns(pieces),
				Explanation:     explanation,
				KeywordsMatched: append(append([]string{}, targetKws...), p.keywords...),
				Source:          SourceLocal,
			})
		}
	}

	if budget := maxResults - len(matches); budget > 0 {
		matches = append(matches, e.typeSynergyMatches(target, candidates, budget)...)
	}

	sortMatches(matches)
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	if matches == nil {
		matches = []*ComboMatch{}
	}
	return matches
}

// typeSynergyMatches pairs target with up to budget partners by card type or
// shared creature subtype. Cheaper partners are tried first.
func (e *Engine) typeSynergyMatches(target *cards.Card, candidates []*cards.Card, budget int) []*ComboMatch {
	ordered := append([]*cards.Card(nil), candidates...)
	cards.SortByManaValueThenName(ordered)

	var matches []*ComboMatch
	for _, c := range ordered {
		if len(matches) >= budget {
			break
		}
		tm, ok := matchTypeSynergy(target, c)
		if !ok {
			continue
		}
		pieces := []*cards.Card{target, c}
		total := totalManaValue(pieces)
		matches = append(matches, &ComboMatch{
			ID:              ComboID(pieces, tm.category),
			Cards:           pieces,
			Category:        tm.category,
			SynergyType:     tm.synergyType,
			PowerLevel:      tm.power,
			Reliability:     e.cfg.Reliability(total),
			ManaCostTotal:   total,
			SetupTurns:      setupTurns(pieces),
			Explanation:     []string{tm.explanation, tm.name + ": " + target.Name + " + " + c.Name},
			KeywordsMatched: tm.keywords,
			Source:          SourceLocal,
		})
	}
	return matches
}

func sharedTags(a, b *oracle.Analysis) []string {
	var shared []string
	for _, tag := range a.SynergyTags {
		if b.HasTag(tag) {
			shared = append(shared, tag)
		}
	}
	return shared
}
