package deckexport

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckbuilder"
)

// ExportFormat represents the text dialect of an exported list.
type ExportFormat string

const (
	FormatPlainText ExportFormat = "plaintext" // "4 Card Name" lines, Sideboard header
	FormatArena     ExportFormat = "arena"     // Deck header, no blank line before lands
	FormatMTGO      ExportFormat = "mtgo"      // Sideboard lines prefixed with "SB: "
)

// Options controls deck serialization.
type Options struct {
	Format         ExportFormat
	Canonical      bool // Sort by card type, then mana value and name, lands last
	IncludeHeaders bool // Include section headers (Deck, Lands)
}

// Entry is one (name, quantity) line of a deck list. Card is optional and
// only used for ordering and basic land detection.
type Entry struct {
	Name     string
	Quantity int
	Card     *cards.Card
}

// EntriesFromAssembly converts the slots of an assembly to entries, in deck order.
func EntriesFromAssembly(a *deckbuilder.Assembly) []Entry {
	if a == nil {
		return nil
	}
	entries := make([]Entry, 0, len(a.Slots))
	for _, slot := range a.Slots {
		entries = append(entries, Entry{
			Name:     slot.Name,
			Quantity: slot.Quantity,
			Card:     slot.Card,
		})
	}
	return entries
}

// Serialize writes the deck as one "<qty> <name>" line per entry. A non-empty
// sideboard follows after a blank line.
func Serialize(main, sideboard []Entry, opts *Options) string {
	if opts == nil {
		opts = &Options{Format: FormatPlainText}
	}

	var sb strings.Builder
	if opts.Format == FormatArena && opts.IncludeHeaders {
		sb.WriteString("Deck\n")
	}

	if opts.Canonical {
		spells, lands := splitCanonical(main)
		writeEntries(&sb, spells, "")
		if len(lands) > 0 {
			if len(spells) > 0 && opts.Format != FormatArena {
				sb.WriteString("\n")
			}
			if opts.IncludeHeaders {
				sb.WriteString("Lands\n")
			}
			writeEntries(&sb, lands, "")
		}
	} else {
		writeEntries(&sb, main, "")
	}

	if len(sideboard) > 0 {
		sb.WriteString("\n")
		if opts.Format == FormatMTGO {
			writeEntries(&sb, sideboard, "SB: ")
		} else {
			sb.WriteString("Sideboard\n")
			writeEntries(&sb, sideboard, "")
		}
	}

	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []Entry, prefix string) {
	for _, e := range entries {
		fmt.Fprintf(sb, "%s%d %s\n", prefix, e.Quantity, e.Name)
	}
}

// typeOrder is the canonical section order of non-land cards.
var typeOrder = []string{"Creature", "Artifact", "Enchantment", "Planeswalker"}

// typeRank returns the canonical position of an entry; lands rank last.
func typeRank(e Entry) int {
	if isLandEntry(e) {
		return len(typeOrder) + 1
	}
	for i, t := range typeOrder {
		if e.Card.HasType(t) {
			return i
		}
	}
	return len(typeOrder)
}

func splitCanonical(entries []Entry) (spells, lands []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := typeRank(sorted[i]), typeRank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Card.CMC() != sorted[j].Card.CMC() {
			return sorted[i].Card.CMC() < sorted[j].Card.CMC()
		}
		return sorted[i].Name < sorted[j].Name
	})
	for _, e := range sorted {
		if isLandEntry(e) {
			lands = append(lands, e)
		} else {
			spells = append(spells, e)
		}
	}
	return spells, lands
}

func isLandEntry(e Entry) bool {
	if e.Card != nil {
		return e.Card.IsLand()
	}
	return IsBasicLandName(e.Name)
}

// Filename converts a deck name into a safe file name with a .txt suffix.
func Filename(deckName string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "-",
		" ", "_",
	)
	name := replacer.Replace(strings.TrimSpace(deckName))
	if name == "" {
		name = "deck"
	}
	if len(name) > 200 {
		name = name[:200]
	}
	return name + ".txt"
}
