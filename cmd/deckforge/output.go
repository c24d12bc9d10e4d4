package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
)

func printCombos(w io.Writer, matches []*combos.ComboMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No combos found")
		return
	}

	var sb strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.Join(m.CardNames(), " + "))
		fmt.Fprintf(&sb, "   %s (%s) | power %d | %s reliability | %d mana | %d turn(s)",
			m.Category, m.SynergyType, m.PowerLevel, m.Reliability, m.ManaCostTotal, m.SetupTurns)
		if m.Source == combos.SourceGenerated {
			sb.WriteString(" | suggested")
		}
		sb.WriteString("\n")
		for _, line := range m.Explanation {
			fmt.Fprintf(&sb, "   - %s\n", line)
		}
		if len(m.KeywordsMatched) > 0 {
			fmt.Fprintf(&sb, "   Keywords: %s\n", strings.Join(m.KeywordsMatched, ", "))
		}
		sb.WriteString("\n")
	}
	fmt.Fprint(w, sb.String())
}
