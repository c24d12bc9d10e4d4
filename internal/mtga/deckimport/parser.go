// Package deckimport parses plain-text deck lists in the Arena, MTGO and
// "4x Card" dialects.
package deckimport

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
)

var (
	// ErrEmptyImport is returned for blank input.
	ErrEmptyImport = errors.New("empty import string")
	// ErrNoCards is returned when no line could be parsed as a card.
	ErrNoCards = errors.New("no cards found in import")
)

// Board names.
const (
	BoardMain      = "main"
	BoardSideboard = "sideboard"
)

// ParsedCard represents a single card line of a deck import.
type ParsedCard struct {
	Quantity        int
	Name            string
	SetCode         string // Optional, from "4 Lightning Bolt (M21) 123"
	CollectorNumber string // Optional
	Board           string // "main" or "sideboard"
	Card            *cards.Card
}

// ParsedDeck represents a deck parsed from an import string.
type ParsedDeck struct {
	Mainboard []*ParsedCard
	Sideboard []*ParsedCard
	Warnings  []string
}

var (
	// "4 Lightning Bolt", "4x Lightning Bolt", "4 Lightning Bolt (M21) 123"
	quantityFirst = regexp.MustCompile(`^(\d+)[xX]?\s+(.+?)(?:\s+\(([A-Za-z0-9]+)\)(?:\s+(\S+))?)?$`)
	// "Lightning Bolt x4"
	quantityLast = regexp.MustCompile(`^(.+?)\s+[xX](\d+)$`)
)

// headers are section lines that carry no card.
var headers = map[string]bool{
	"deck":      true,
	"lands":     true,
	"main":      true,
	"mainboard": true,
	"maindeck":  true,
}

// Parse reads a deck list. Repeated lines naming the same card on the same
// board are merged. Lines that are not cards become warnings.
func Parse(input string) (*ParsedDeck, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyImport
	}

	deck := &ParsedDeck{
		Mainboard: make([]*ParsedCard, 0),
		Sideboard: make([]*ParsedCard, 0),
		Warnings:  make([]string, 0),
	}
	seen := map[string]map[string]*ParsedCard{
		BoardMain:      {},
		BoardSideboard: {},
	}

	board := BoardMain
	arena := false

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		switch {
		case line == "":
			// Arena separates the sideboard with an empty line
			if arena && board == BoardMain && len(deck.Mainboard) > 0 {
				board = BoardSideboard
			}
			continue
		case strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(lower, "sideboard"):
			board = BoardSideboard
			continue
		case headers[strings.TrimSuffix(lower, ":")]:
			if lower == "deck" {
				arena = true
			}
			continue
		}

		lineBoard := board
		if strings.HasPrefix(lower, "sb:") {
			lineBoard = BoardSideboard
			line = strings.TrimSpace(line[3:])
		}

		card, ok := parseLine(line)
		if !ok {
			deck.Warnings = append(deck.Warnings,
				fmt.Sprintf("line %d: could not parse %q", i+1, line))
			continue
		}
		if card.Quantity <= 0 {
			deck.Warnings = append(deck.Warnings,
				fmt.Sprintf("line %d: invalid quantity for %q", i+1, card.Name))
			continue
		}
		card.Board = lineBoard

		key := strings.ToLower(card.Name)
		if existing, ok := seen[lineBoard][key]; ok {
			existing.Quantity += card.Quantity
			continue
		}
		seen[lineBoard][key] = card
		if lineBoard == BoardMain {
			deck.Mainboard = append(deck.Mainboard, card)
		} else {
			deck.Sideboard = append(deck.Sideboard, card)
		}
	}

	if len(deck.Mainboard) == 0 && len(deck.Sideboard) == 0 {
		return nil, ErrNoCards
	}
	return deck, nil
}

func parseLine(line string) (*ParsedCard, bool) {
	if m := quantityFirst.FindStringSubmatch(line); m != nil {
		qty, err := strconv.Atoi(m[1])
		if err == nil {
			return &ParsedCard{
				Quantity:        qty,
				Name:            strings.TrimSpace(m[2]),
				SetCode:         strings.ToUpper(m[3]),
				CollectorNumber: m[4],
			}, true
		}
	}
	if m := quantityLast.FindStringSubmatch(line); m != nil {
		qty, err := strconv.Atoi(m[2])
		if err == nil {
			return &ParsedCard{
				Quantity: qty,
				Name:     strings.TrimSpace(m[1]),
			}, true
		}
	}
	return nil, false
}

// Resolve attaches repository cards by name, ignoring case, and returns the
// names it could not find.
func (d *ParsedDeck) Resolve(byName map[string]*cards.Card) []string {
	var missing []string
	for _, board := range [][]*ParsedCard{d.Mainboard, d.Sideboard} {
		for _, pc := range board {
			if card, ok := byName[strings.ToLower(pc.Name)]; ok {
				pc.Card = card
				continue
			}
			missing = append(missing, pc.Name)
		}
	}
	return missing
}

// Entries converts the deck to export entries.
func (d *ParsedDeck) Entries() (main, sideboard []deckexport.Entry) {
	return toEntries(d.Mainboard), toEntries(d.Sideboard)
}

func toEntries(parsed []*ParsedCard) []deckexport.Entry {
	entries := make([]deckexport.Entry, 0, len(parsed))
	for _, pc := range parsed {
		entries = append(entries, deckexport.Entry{
			Name:     pc.Name,
			Quantity: pc.Quantity,
			Card:     pc.Card,
		})
	}
	return entries
}

// TotalCards returns the number of mainboard cards.
func (d *ParsedDeck) TotalCards() int {
	total := 0
	for _, pc := range d.Mainboard {
		total += pc.Quantity
	}
	return total
}
