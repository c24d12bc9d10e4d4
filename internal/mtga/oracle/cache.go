package oracle

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// DefaultCacheSize is the number of analyses kept when no size is given.
const DefaultCacheSize = 4096

// Parser memoizes analyses per card. The cache is keyed by card id and text,
// so an edited oracle text is re-parsed. Safe for concurrent use.
type Parser struct {
	cache *lru.Cache[string, *Analysis]
}

// NewParser creates a caching parser. size <= 0 uses DefaultCacheSize.
func NewParser(size int) *Parser {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes
	cache, _ := lru.New[string, *Analysis](size)
	return &Parser{cache: cache}
}

// Analyze returns the analysis for a card, parsing on a cache miss.
func (p *Parser) Analyze(card *cards.Card) *Analysis {
	if card == nil {
		return emptyAnalysis()
	}
	text := card.Text()
	if text == "" {
		return emptyAnalysis()
	}

	key := card.ID + "\x00" + text
	if analysis, ok := p.cache.Get(key); ok {
		return analysis
	}

	analysis := Parse(text)
	p.cache.Add(key, analysis)
	return analysis
}

// Len returns the number of cached analyses.
func (p *Parser) Len() int {
	return p.cache.Len()
}

// Purge drops every cached analysis.
func (p *Parser) Purge() {
	p.cache.Purge()
}
