package combos

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// BasicSynergyCategory marks the placeholder combo of a pool scan that found nothing else.
const BasicSynergyCategory = "basic_synergy"

const basicSynergyPower = 3

// FindPoolCombos scans a color-filtered pool for pattern co-occurrence and,
// when too few combos turn up, asks the suggester for more. Suggester failures
// are logged and the local results returned.
func (e *Engine) FindPoolCombos(ctx context.Context, req *Request, pool []*cards.Card) []*ComboMatch {
	if req == nil {
		return []*ComboMatch{}
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultMaxResults
	}

	filtered := cards.Predicate{
		ColorIdentity:     cards.NormalizeColors(req.Colors),
		Format:            req.Format,
		RequireOracleText: true,
	}.Filter(pool)
	filtered = slices.DeleteFunc(filtered, (*cards.Card).IsBasicLand)
	cards.SortByManaValueThenName(filtered)

	var matches []*ComboMatch
	seen := make(map[string]bool)
	for _, pattern := range poolPatterns {
		m, ok := e.scanPattern(pattern, filtered, req)
		if !ok || !withinConstraints(m, req) {
			continue
		}
		key := cardSetKey(m.CardNames())
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, m)
	}

	if len(matches) < e.cfg.MinLocalResults && e.suggester != nil {
		matches = append(matches, e.generated(ctx, req, pool, matches, seen)...)
	}

	if len(matches) == 0 && e.cfg.BasicSynergyFallback {
		if m, ok := e.basicSynergy(filtered, req); ok {
			matches = append(matches, m)
		}
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

// scanPattern collects up to PoolCardsPerPattern cards mentioning the pattern
// keywords and emits a combo when at least two were found.
func (e *Engine) scanPattern(pattern PoolPattern, pool []*cards.Card, req *Request) (*ComboMatch, bool) {
	limit := e.cfg.PoolCardsPerPattern
	if req.MaxCards > 0 && req.MaxCards < limit {
		limit = req.MaxCards
	}

	var pieces []*cards.Card
	keywordSet := make(map[string]bool)
	var keywords []string
	for _, c := range pool {
		if len(pieces) >= limit {
			break
		}
		kws := oracle.CardKeywords(c, pattern.Keywords)
		if len(kws) == 0 {
			continue
		}
		pieces = append(pieces, c)
		for _, kw := range kws {
			if !keywordSet[kw] {
				keywordSet[kw] = true
				keywords = append(keywords, kw)
			}
		}
	}
	if len(pieces) < 2 {
		return nil, false
	}

	total := totalManaValue(pieces)
	names := make([]string, len(pieces))
	for i, c := range pieces {
		names[i] = c.Name
	}
	return &ComboMatch{
		ID:              ComboID(pieces, pattern.Category),
		Cards:           pieces,
		Category:        pattern.Category,
		SynergyType:     pattern.SynergyType,
		PowerLevel:      pattern.PowerLevel,
		Reliability:     e.cfg.PoolReliability(total),
		ManaCostTotal:   total,
		SetupTurns:      setupTurns(pieces),
		Explanation:     []string{pattern.Explanation, pattern.Name + ": " + strings.Join(names, " + ")},
		KeywordsMatched: keywords,
		Source:          SourceLocal,
	}, true
}

// generated asks the suggester for combos, coerces them and drops any whose
// card set was already found.
func (e *Engine) generated(ctx context.Context, req *Request, pool []*cards.Card, found []*ComboMatch, seen map[string]bool) []*ComboMatch {
	avoid := make([][]string, 0, len(found))
	for _, m := range found {
		avoid = append(avoid, m.CardNames())
	}

	suggestions, err := e.suggester.SuggestCombos(ctx, SuggestionRequest{
		Colors:        cards.NormalizeColors(req.Colors),
		PowerLevelMin: req.PowerMin,
		PowerLevelMax: req.PowerMax,
		MaxSetupTurns: req.MaxSetupTurns,
		MaxCards:      req.MaxCards,
		Format:        req.Format,
		CreativeMode:  req.CreativeMode,
		Avoid:         avoid,
	})
	if err != nil {
		e.logger.Warn("combo suggester failed, using local results only",
			zap.Error(err),
			zap.Int("local_results", len(found)))
		return nil
	}

	byName := cards.IndexByName(pool)
	var out []*ComboMatch
	discarded := 0
	for _, s := range suggestions {
		m, ok := e.cfg.CoerceSuggestion(s, byName)
		if !ok || !withinConstraints(m, req) {
			discarded++
			continue
		}
		key := cardSetKey(m.CardNames())
		if seen[key] {
			discarded++
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	if discarded > 0 {
		e.logger.Debug("discarded generated combos",
			zap.Int("discarded", discarded),
			zap.Int("kept", len(out)))
	}
	return out
}

// basicSynergy builds the placeholder combo from the cheapest two or three cards.
func (e *Engine) basicSynergy(pool []*cards.Card, req *Request) (*ComboMatch, bool) {
	n := 3
	if req.MaxCards > 0 && req.MaxCards < n {
		n = req.MaxCards
	}
	if n > len(pool) {
		n = len(pool)
	}
	if n < 2 {
		return nil, false
	}
	pieces := append([]*cards.Card(nil), pool[:n]...)

	power := basicSynergyPower
	if req.PowerMin > 0 && power < req.PowerMin {
		power = req.PowerMin
	}
	if req.PowerMax > 0 && power > req.PowerMax {
		power = req.PowerMax
	}

	total := totalManaValue(pieces)
	return &ComboMatch{
		ID:              ComboID(pieces, BasicSynergyCategory),
		Cards:           pieces,
		Category:        BasicSynergyCategory,
		SynergyType:     SynergyEngine,
		PowerLevel:      clamp(power, 1, 10),
		Reliability:     e.cfg.PoolReliability(total),
		ManaCostTotal:   total,
		SetupTurns:      setupTurns(pieces),
		Explanation:     []string{fmt.Sprintf("No archetype matched; %d low-cost cards in these colors.", n)},
		KeywordsMatched: []string{},
		Source:          SourceLocal,
	}, true
}

func withinConstraints(m *ComboMatch, req *Request) bool {
	if req.PowerMin > 0 && m.PowerLevel < req.PowerMin {
		return false
	}
	if req.PowerMax > 0 && m.PowerLevel > req.PowerMax {
		return false
	}
	if req.MaxSetupTurns > 0 && m.SetupTurns > req.MaxSetupTurns {
		return false
	}
	if req.MaxCards > 0 && len(m.Cards) > req.MaxCards {
		return false
	}
	return true
}
