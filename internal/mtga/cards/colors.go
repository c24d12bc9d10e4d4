package cards

import (
	"sort"
	"strings"
)

// colorOrder is the canonical WUBRG ordering.
var colorOrder = map[string]int{"W": 0, "U": 1, "B": 2, "R": 3, "G": 4}

// NormalizeColors uppercases, dedupes, drops anything outside WUBRG and sorts
// into WUBRG order. Malformed symbols are discarded rather than reported.
func NormalizeColors(colors []string) []string {
	if len(colors) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(colors))
	result := make([]string, 0, len(colors))
	for _, c := range colors {
		c = strings.ToUpper(strings.Trim(strings.TrimSpace(c), "{}"))
		if _, ok := colorOrder[c]; !ok || seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return colorOrder[result[i]] < colorOrder[result[j]]
	})
	return result
}

// ParseColors parses a compact color string such as "RG" or "w,u" into symbols.
func ParseColors(s string) []string {
	symbols := make([]string, 0, len(s))
	for _, r := range s {
		symbols = append(symbols, string(r))
	}
	return NormalizeColors(symbols)
}

// IsColorSubset reports whether every color of identity is in allowed.
// A colorless identity is a subset of anything.
func IsColorSubset(identity, allowed []string) bool {
	allowedSet := make(map[string]bool, len(allowed))
	for _, c := range NormalizeColors(allowed) {
		allowedSet[c] = true
	}
	for _, c := range NormalizeColors(identity) {
		if !allowedSet[c] {
			return false
		}
	}
	return true
}

// ColorsOverlap reports whether a and b share a color. Colorless on either
// side always overlaps.
func ColorsOverlap(a, b []string) bool {
	na, nb := NormalizeColors(a), NormalizeColors(b)
	if len(na) == 0 || len(nb) == 0 {
		return true
	}
	for _, x := range na {
		for _, y := range nb {
			if x == y {
				return true
			}
		}
	}
	return false
}

// SameColors reports whether a and b contain exactly the same colors.
func SameColors(a, b []string) bool {
	na, nb := NormalizeColors(a), NormalizeColors(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// CountPips counts occurrences of a color symbol in a mana cost, including
// hybrid and phyrexian symbols ("{R/G}", "{R/P}").
func CountPips(manaCost, color string) int {
	color = strings.ToUpper(color)
	count := 0
	rest := strings.ToUpper(manaCost)
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			break
		}
		symbol := rest[open+1 : open+end]
		for _, part := range strings.Split(symbol, "/") {
			if part == color {
				count++
				break
			}
		}
		rest = rest[open+end+1:]
	}
	return count
}

// ColorString renders colors compactly in WUBRG order ("RG"); colorless is "C".
func ColorString(colors []string) string {
	n := NormalizeColors(colors)
	if len(n) == 0 {
		return "C"
	}
	return strings.Join(n, "")
}
