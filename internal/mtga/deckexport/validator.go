package deckexport

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/deckbuilder"
)

// ValidationResult is the outcome of validating a deck list. Violations are
// reported as warnings; validation itself never fails.
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	Warnings     []string `json:"warnings"`
	TotalCards   int      `json:"total_cards"`
	ExpectedSize int      `json:"expected_size"`
}

var basicLandNames = map[string]bool{
	"plains":                true,
	"island":                true,
	"swamp":                 true,
	"mountain":              true,
	"forest":                true,
	"wastes":                true,
	"snow-covered plains":   true,
	"snow-covered island":   true,
	"snow-covered swamp":    true,
	"snow-covered mountain": true,
	"snow-covered forest":   true,
}

// IsBasicLandName reports whether name is a basic land, ignoring case.
func IsBasicLandName(name string) bool {
	return basicLandNames[strings.ToLower(strings.TrimSpace(name))]
}

func isBasicEntry(e Entry) bool {
	if e.Card != nil {
		return e.Card.IsBasicLand()
	}
	return IsBasicLandName(e.Name)
}

// Validate checks the deck size and per-card copy limit of format. Entries
// naming the same card are counted together.
func Validate(entries []Entry, format deckbuilder.Format) *ValidationResult {
	result := &ValidationResult{
		Warnings: []string{},
	}

	copies := make(map[string]int)
	var order []string
	names := make(map[string]string)
	basics := make(map[string]bool)
	for _, e := range entries {
		if e.Quantity <= 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: invalid quantity %d", e.Name, e.Quantity))
			continue
		}
		result.TotalCards += e.Quantity

		key := strings.ToLower(strings.TrimSpace(e.Name))
		if _, seen := copies[key]; !seen {
			order = append(order, key)
			names[key] = e.Name
		}
		copies[key] += e.Quantity
		if isBasicEntry(e) {
			basics[key] = true
		}
	}

	rules, err := deckbuilder.Rules(format)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}
	result.ExpectedSize = rules.TargetSize

	if result.TotalCards != rules.TargetSize {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("deck has %d cards, expected %d", result.TotalCards, rules.TargetSize))
	}
	for _, key := range order {
		if basics[key] {
			continue
		}
		if n := copies[key]; n > rules.CopyLimit {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %d copies exceeds the %s limit of %d", names[key], n, rules.Format, rules.CopyLimit))
		}
	}

	result.IsValid = len(result.Warnings) == 0
	return result
}
