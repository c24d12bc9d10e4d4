package cards

import (
	"context"
	"sort"
	"strings"
)

// Predicate selects candidate cards from a repository.
type Predicate struct {
	// ColorIdentity restricts results to cards whose identity is a subset.
	// Nil means no color restriction.
	ColorIdentity []string

	// Format restricts results to cards legal in the format ("" = any).
	Format string

	// RequireOracleText drops cards without rules text.
	RequireOracleText bool
}

// Matches reports whether card satisfies the predicate.
func (p Predicate) Matches(card *Card) bool {
	if card == nil {
		return false
	}
	if p.ColorIdentity != nil && !IsColorSubset(card.ColorIdentity, p.ColorIdentity) {
		return false
	}
	if p.Format != "" && !card.LegalIn(p.Format) {
		return false
	}
	if p.RequireOracleText && strings.TrimSpace(card.Text()) == "" {
		return false
	}
	return true
}

// Filter returns the cards matching the predicate, preserving order.
func (p Predicate) Filter(pool []*Card) []*Card {
	result := make([]*Card, 0, len(pool))
	for _, card := range pool {
		if p.Matches(card) {
			result = append(result, card)
		}
	}
	return result
}

// Repository fetches candidate cards. Implementations need not push the whole
// predicate down; callers filter again in memory.
type Repository interface {
	FetchCandidates(ctx context.Context, predicate Predicate) ([]*Card, error)
}

// MemoryRepository serves cards from an in-memory slice.
type MemoryRepository struct {
	cards  []*Card
	byName map[string]*Card
}

// NewMemoryRepository creates a repository over the given cards.
func NewMemoryRepository(all []*Card) *MemoryRepository {
	return &MemoryRepository{cards: all, byName: IndexByName(all)}
}

// FetchCandidates returns the cards matching predicate.
func (r *MemoryRepository) FetchCandidates(ctx context.Context, predicate Predicate) ([]*Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return predicate.Filter(r.cards), nil
}

// FindByName looks a card up by case-insensitive name.
func (r *MemoryRepository) FindByName(name string) *Card {
	return r.byName[strings.ToLower(strings.TrimSpace(name))]
}

// Len returns the number of cards held.
func (r *MemoryRepository) Len() int {
	return len(r.cards)
}

// IndexByName builds a case-insensitive name index over a pool.
func IndexByName(pool []*Card) map[string]*Card {
	index := make(map[string]*Card, len(pool))
	for _, card := range pool {
		if card == nil {
			continue
		}
		key := strings.ToLower(card.Name)
		if _, exists := index[key]; !exists {
			index[key] = card
		}
	}
	return index
}

// SortByManaValueThenName orders cards by ascending mana value, then name.
func SortByManaValueThenName(pool []*Card) {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].CMC() != pool[j].CMC() {
			return pool[i].CMC() < pool[j].CMC()
		}
		return pool[i].Name < pool[j].Name
	})
}
