package deckbuilder

import (
	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
)

// basicLandNames maps a color to its basic land.
var basicLandNames = map[string]string{
	"W": "Plains",
	"U": "Island",
	"B": "Swamp",
	"R": "Mountain",
	"G": "Forest",
}

// colorless keys the colorless basic land of a build with an empty identity.
const colorless = "C"

// BasicLandName returns the basic land producing color, or "".
func BasicLandName(color string) string {
	return basicLandNames[color]
}

var utilityLandPhrases = []string{"draw", "scry", "life"}

// landCandidates are the unused lands of the pool, grouped by role.
type landCandidates struct {
	duals   []*cards.Card
	basics  map[string]*cards.Card // Color, or colorless, -> first basic land by name
	utility []*cards.Card
}

func collectLands(s *build) landCandidates {
	lc := landCandidates{basics: make(map[string]*cards.Card)}

	var lands []*cards.Card
	for _, card := range s.pool {
		if card.IsLand() && !s.used[card.Key()] {
			lands = append(lands, card)
		}
	}
	cards.SortByManaValueThenName(lands)

	for _, land := range lands {
		identity := cards.NormalizeColors(land.ColorIdentity)
		switch {
		case land.IsBasicLand():
			key := ""
			switch {
			case len(identity) == 1 && cards.IsColorSubset(identity, s.identity):
				key = identity[0]
			case len(identity) == 0 && len(s.identity) == 0:
				key = colorless
			}
			if _, ok := lc.basics[key]; key != "" && !ok {
				lc.basics[key] = land
			}
		case len(identity) == 2 && cards.IsColorSubset(identity, s.identity):
			lc.duals = append(lc.duals, land)
		case len(identity) == 0 && oracle.ContainsAny(oracle.StripReminderText(land.Text()), utilityLandPhrases):
			lc.utility = append(lc.utility, land)
		}
	}
	return lc
}

// addLands fills the remaining size with duals, utility lands and basics
// split by color pips. Need the pool cannot cover is recorded as a shortfall.
func (b *Builder) addLands(s *build) {
	need := s.rules.TargetSize - s.total()
	if need <= 0 {
		return
	}
	lc := collectLands(s)

	dualBudget := int(float64(need) * b.cfg.MaxDualShare)
	added := b.addDuals(s, lc.duals, dualBudget)

	utilityBudget := min(b.cfg.MaxUtilityLands, need-added)
	for _, land := range lc.utility {
		if utilityBudget <= 0 {
			break
		}
		s.add(land, 1, RoleUtilityLand)
		utilityBudget--
		added++
	}

	unmet := 0
	for _, alloc := range splitBasics(s, need-added) {
		land, ok := lc.basics[alloc.color]
		if !ok {
			unmet += alloc.count
			continue
		}
		s.add(land, alloc.count, RoleBasicLand)
	}

	if unmet > 0 {
		unmet -= b.addDuals(s, lc.duals, unmet)
	}
	if unmet > 0 {
		unmet -= addExtraBasics(s, lc.basics, unmet)
	}
	if unmet > 0 {
		s.assembly.Shortfalls = append(s.assembly.Shortfalls, Shortfall{
			Role:   "lands",
			Needed: need,
			Filled: need - unmet,
		})
		s.warn("pool lacks %d of %d lands for colors %s", unmet, need, cards.ColorString(s.identity))
	}
}

// addDuals adds up to budget dual lands, first raising copies of duals
// already in the deck, then adding new ones. It returns the number added.
func (b *Builder) addDuals(s *build, duals []*cards.Card, budget int) int {
	added := 0
	for i := range s.assembly.Slots {
		slot := &s.assembly.Slots[i]
		if budget-added <= 0 {
			return added
		}
		if slot.Role != RoleDualLand {
			continue
		}
		extra := min(s.rules.CopyLimit-slot.Quantity, budget-added)
		if extra > 0 {
			slot.Quantity += extra
			added += extra
		}
	}
	for _, land := range duals {
		if budget-added <= 0 {
			break
		}
		if s.used[land.Key()] {
			continue
		}
		qty := min(s.rules.CopyLimit, budget-added)
		s.add(land, qty, RoleDualLand)
		added += qty
	}
	return added
}

// addExtraBasics gives need the pool's basics could not cover to the basic
// of the color with the most pips. It returns the number added.
func addExtraBasics(s *build, basics map[string]*cards.Card, count int) int {
	if len(basics) == 0 {
		return 0
	}
	pips := colorPips(s)
	best := ""
	for _, color := range s.identity {
		if _, ok := basics[color]; !ok {
			continue
		}
		if best == "" || pips[color] > pips[best] {
			best = color
		}
	}
	if best == "" {
		return 0
	}

	land := basics[best]
	for i := range s.assembly.Slots {
		if s.assembly.Slots[i].Role == RoleBasicLand && s.assembly.Slots[i].Card == land {
			s.assembly.Slots[i].Quantity += count
			return count
		}
	}
	s.add(land, count, RoleBasicLand)
	return count
}

type basicAllocation struct {
	color string
	count int
}

// colorPips counts the colored mana symbols of the non-land slots, weighted by quantity.
func colorPips(s *build) map[string]int {
	pips := make(map[string]int, len(s.identity))
	for _, slot := range s.assembly.Slots {
		if slot.Card == nil || slot.Card.IsLand() {
			continue
		}
		for _, color := range s.identity {
			pips[color] += cards.CountPips(slot.Card.Cost(), color) * slot.Quantity
		}
	}
	return pips
}

// splitBasics divides count basics across the identity colors in proportion
// to pips. The rounding remainder goes to the color with the most pips; with
// no pips the split is even. A colorless identity gets all of them as
// colorless basics.
func splitBasics(s *build, count int) []basicAllocation {
	if count <= 0 {
		return nil
	}
	if len(s.identity) == 0 {
		return []basicAllocation{{color: colorless, count: count}}
	}
	pips := colorPips(s)
	totalPips := 0
	for _, color := range s.identity {
		totalPips += pips[color]
	}

	allocs := make([]basicAllocation, 0, len(s.identity))
	if totalPips == 0 {
		base := count / len(s.identity)
		remainder := count % len(s.identity)
		for i, color := range s.identity {
			n := base
			if i < remainder {
				n++
			}
			if n > 0 {
				allocs = append(allocs, basicAllocation{color: color, count: n})
			}
		}
		return allocs
	}

	allocated := 0
	maxColor := ""
	for _, color := range s.identity {
		n := count * pips[color] / totalPips
		allocs = append(allocs, basicAllocation{color: color, count: n})
		allocated += n
		if maxColor == "" || pips[color] > pips[maxColor] {
			maxColor = color
		}
	}
	for i := range allocs {
		if allocs[i].color == maxColor {
			allocs[i].count += count - allocated
		}
	}

	out := allocs[:0]
	for _, a := range allocs {
		if a.count > 0 {
			out = append(out, a)
		}
	}
	return out
}
