package deckbuilder

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// ErrInvalidRequest is returned for a nil request.
var ErrInvalidRequest = errors.New("invalid build request")

// Request is the input of a build.
type Request struct {
	Combos        []*combos.ComboMatch
	ColorIdentity []string
	Format        Format

	// Pool is the candidate pool. Cards outside ColorIdentity are ignored.
	Pool []*cards.Card

	// Legality optionally restricts the pool to cards legal in a named format.
	Legality string
}

// Builder assembles decks. It keeps no per-build state.
type Builder struct {
	cfg    Config
	parser *oracle.Parser
	logger *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithParser shares an oracle parser cache with the builder.
func WithParser(p *oracle.Parser) Option {
	return func(b *Builder) {
		if p != nil {
			b.parser = p
		}
	}
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.parser == nil {
		b.parser = oracle.NewParser(0)
	}
	return b
}

// build holds the state of one Build call.
type build struct {
	rules    FormatRules
	identity []string
	pool     []*cards.Card
	used     map[string]bool
	assembly *Assembly
}

func (s *build) add(card *cards.Card, qty int, role Role) {
	s.used[card.Key()] = true
	s.assembly.Slots = append(s.assembly.Slots, Slot{
		CardID:   card.ID,
		Name:     card.Name,
		Quantity: qty,
		Role:     role,
		Card:     card,
	})
}

func (s *build) total() int {
	return s.assembly.TotalCards()
}

func (s *build) warn(format string, args ...any) {
	s.assembly.Warnings = append(s.assembly.Warnings, fmt.Sprintf(format, args...))
}

// Build reserves combo pieces, fills the support quotas and adds a land base.
// It only errors on an invalid request; a pool too small to reach the target
// size yields an incomplete assembly with shortfalls.
func (b *Builder) Build(req *Request) (*Assembly, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	rules, err := b.cfg.Rules(req.Format)
	if err != nil {
		return nil, err
	}
	quotas, err := b.cfg.Quotas(req.Format)
	if err != nil {
		return nil, err
	}

	identity := cards.NormalizeColors(req.ColorIdentity)
	s := &build{
		rules:    rules,
		identity: identity,
		pool: cards.Predicate{
			ColorIdentity: identity,
			Format:        req.Legality,
		}.Filter(req.Pool),
		used: make(map[string]bool),
		assembly: &Assembly{
			Format:        rules.Format,
			ColorIdentity: identity,
			Slots:         []Slot{},
			LandRatio:     rules.LandRatio,
			TargetSize:    rules.TargetSize,
		},
	}

	b.reserveComboPieces(s, req.Combos)
	b.fillQuotas(s, quotas)
	if b.cfg.GenericFill {
		b.fillGeneric(s)
	}
	b.addLands(s)

	a := s.assembly
	total := a.TotalCards()
	a.Complete = total == rules.TargetSize
	if total > rules.TargetSize {
		s.warn("deck has %d cards, more than the target of %d", total, rules.TargetSize)
	}

	b.logger.Debug("deck assembled",
		zap.String("format", string(rules.Format)),
		zap.String("colors", cards.ColorString(identity)),
		zap.Int("cards", total),
		zap.Int("lands", a.LandCount()),
		zap.Bool("complete", a.Complete),
		zap.Int("shortfalls", len(a.Shortfalls)))

	return a, nil
}

// reserveComboPieces adds every distinct combo card once, skipping pieces
// outside the color identity and pieces unknown to the repository.
func (b *Builder) reserveComboPieces(s *build, selected []*combos.ComboMatch) {
	for _, m := range selected {
		if m == nil {
			continue
		}
		for _, card := range m.Cards {
			if card == nil || s.used[card.Key()] {
				continue
			}
			if card.ID == "" {
				s.warn("combo piece %q is not in the card repository, skipped", card.Name)
				continue
			}
			if !cards.IsColorSubset(card.ColorIdentity, s.identity) {
				s.warn("combo piece %q is outside color identity %s, skipped", card.Name, cards.ColorString(s.identity))
				continue
			}
			qty := s.rules.ComboCopies
			if card.IsBasicLand() {
				qty = 1
			}
			if room := s.rules.TargetSize - s.total(); qty > room {
				if room <= 0 {
					s.warn("no room for combo piece %q", card.Name)
					continue
				}
				qty = room
			}
			s.add(card, qty, RoleComboPiece)
		}
	}
}

// fillQuotas takes the best unused matches for each category until the
// non-land cap is reached.
func (b *Builder) fillQuotas(s *build, quotas []Quota) {
	limit := s.rules.NonLandCap()

	for _, q := range quotas {
		if q.Count <= 0 {
			continue
		}
		var matches []*cards.Card
		for _, card := range s.pool {
			if card.IsLand() || s.used[card.Key()] {
				continue
			}
			if q.Matches(card, b.parser.Analyze(card)) {
				matches = append(matches, card)
			}
		}
		sortCandidates(matches, s.identity)

		taken := 0
		for _, card := range matches {
			if taken >= q.Count {
				break
			}
			room := limit - s.total()
			if room <= 0 {
				break
			}
			s.add(card, min(s.rules.CategoryCopies, room), q.Role)
			taken++
		}

		if taken < q.Count && s.total() < limit {
			s.assembly.Shortfalls = append(s.assembly.Shortfalls, Shortfall{
				Role:   string(q.Role),
				Needed: q.Count,
				Filled: taken,
			})
		}
	}
}

// fillGeneric tops the non-land section up to the cap with unused cards.
func (b *Builder) fillGeneric(s *build) {
	limit := s.rules.NonLandCap()

	var rest []*cards.Card
	for _, card := range s.pool {
		if !card.IsLand() && !s.used[card.Key()] {
			rest = append(rest, card)
		}
	}
	sortCandidates(rest, s.identity)

	for _, card := range rest {
		room := limit - s.total()
		if room <= 0 {
			return
		}
		s.add(card, min(s.rules.CategoryCopies, room), RoleGeneric)
	}
}

// sortCandidates orders exact identity matches first, then by mana value and name.
func sortCandidates(pool []*cards.Card, identity []string) {
	sort.SliceStable(pool, func(i, j int) bool {
		ei := cards.SameColors(pool[i].ColorIdentity, identity)
		ej := cards.SameColors(pool[j].ColorIdentity, identity)
		if ei != ej {
			return ei
		}
		if pool[i].CMC() != pool[j].CMC() {
			return pool[i].CMC() < pool[j].CMC()
		}
		return pool[i].Name < pool[j].Name
	})
}

