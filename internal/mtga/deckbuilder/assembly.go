package deckbuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// ErrInsufficientPool is wrapped by Assembly.Insufficiency when the pool could
// not fill the deck to its target size.
var ErrInsufficientPool = errors.New("candidate pool cannot fill the deck")

// Slot is one distinct card in the deck.
type Slot struct {
	CardID   string      `json:"card_id"`
	Name     string      `json:"name"`
	Quantity int         `json:"quantity"`
	Role     Role        `json:"role"`
	Card     *cards.Card `json:"-"`
}

// Shortfall records a category or land need the pool could not meet.
type Shortfall struct {
	Role   string `json:"role"` // Quota role, or "lands"
	Needed int    `json:"needed"`
	Filled int    `json:"filled"`
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s: %d of %d", s.Role, s.Filled, s.Needed)
}

// Assembly is the result of a build. It is only Complete when the slot
// quantities add up to TargetSize.
type Assembly struct {
	Format        Format      `json:"format"`
	ColorIdentity []string    `json:"color_identity"`
	Slots         []Slot      `json:"slots"`
	LandRatio     float64     `json:"land_ratio"`
	TargetSize    int         `json:"target_size"`
	Complete      bool        `json:"complete"`
	Shortfalls    []Shortfall `json:"shortfalls,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// TotalCards returns the sum of slot quantities.
func (a *Assembly) TotalCards() int {
	total := 0
	for _, s := range a.Slots {
		total += s.Quantity
	}
	return total
}

// LandCount returns the number of land cards in the deck.
func (a *Assembly) LandCount() int {
	total := 0
	for _, s := range a.Slots {
		if s.Role.IsLandRole() || (s.Card != nil && s.Card.IsLand()) {
			total += s.Quantity
		}
	}
	return total
}

// SlotsByRole returns the slots with the given role, in deck order.
func (a *Assembly) SlotsByRole(role Role) []Slot {
	var out []Slot
	for _, s := range a.Slots {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// Insufficiency returns nil for a complete assembly, otherwise an error
// wrapping ErrInsufficientPool that lists the shortfalls.
func (a *Assembly) Insufficiency() error {
	if a.Complete {
		return nil
	}
	parts := make([]string, 0, len(a.Shortfalls))
	for _, s := range a.Shortfalls {
		parts = append(parts, s.String())
	}
	return fmt.Errorf("%w: %d of %d cards (%s)", ErrInsufficientPool, a.TotalCards(), a.TargetSize, strings.Join(parts, ", "))
}
