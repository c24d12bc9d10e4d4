package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// CardRepository stores cards in SQLite and serves candidate pools.
// It implements cards.Repository.
type CardRepository struct {
	db *DB
}

// NewCardRepository creates a card repository.
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{db: db}
}

// UpsertCards saves or updates cards and replaces their legalities.
// Cards without an ID are skipped. It returns the number of cards saved.
func (r *CardRepository) UpsertCards(ctx context.Context, all []*cards.Card) (int, error) {
	saved := 0
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		cardStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (
				id, name, mana_value, mana_cost, colors, color_identity, type_line, oracle_text, updated_at
			) VALUES (
				?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP
			)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				mana_value = excluded.mana_value,
				mana_cost = excluded.mana_cost,
				colors = excluded.colors,
				color_identity = excluded.color_identity,
				type_line = excluded.type_line,
				oracle_text = excluded.oracle_text,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare card insert: %w", err)
		}
		defer func() { _ = cardStmt.Close() }()

		legalStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO card_legalities (card_id, format, legal) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare legality insert: %w", err)
		}
		defer func() { _ = legalStmt.Close() }()

		for _, card := range all {
			if card == nil || card.ID == "" {
				continue
			}
			_, err := cardStmt.ExecContext(ctx,
				card.ID, card.Name, card.ManaValue, card.ManaCost,
				colorColumn(card.Colors), colorColumn(card.ColorIdentity),
				card.TypeLine, card.OracleText,
			)
			if err != nil {
				return fmt.Errorf("failed to save card %q: %w", card.Name, err)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM card_legalities WHERE card_id = ?`, card.ID); err != nil {
				return fmt.Errorf("failed to clear legalities for %q: %w", card.Name, err)
			}
			for format, legal := range card.Legalities {
				if _, err := legalStmt.ExecContext(ctx, card.ID, strings.ToLower(format), legal); err != nil {
					return fmt.Errorf("failed to save legality for %q: %w", card.Name, err)
				}
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// FetchCandidates returns the cards matching predicate. Oracle text and
// legality are filtered in SQL; color identity is checked in memory.
func (r *CardRepository) FetchCandidates(ctx context.Context, predicate cards.Predicate) ([]*cards.Card, error) {
	where, args := candidateFilter(predicate)

	all, err := r.queryCards(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	return predicate.Filter(all), nil
}

// GetByName retrieves a card by case-insensitive name. It returns nil when
// no card has that name.
func (r *CardRepository) GetByName(ctx context.Context, name string) (*cards.Card, error) {
	found, err := r.queryCards(ctx, "c.name = ? COLLATE NOCASE", strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// Count returns the number of stored cards.
func (r *CardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func candidateFilter(p cards.Predicate) (string, []any) {
	var clauses []string
	var args []any

	if p.RequireOracleText {
		clauses = append(clauses, "c.oracle_text IS NOT NULL AND TRIM(c.oracle_text) != ''")
	}
	if p.Format != "" {
		// Cards without legality data count as legal
		clauses = append(clauses, `(
			NOT EXISTS (SELECT 1 FROM card_legalities l WHERE l.card_id = c.id)
			OR EXISTS (SELECT 1 FROM card_legalities l WHERE l.card_id = c.id AND l.format = ? AND l.legal = 1)
		)`)
		args = append(args, strings.ToLower(p.Format))
	}

	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// queryCards loads the cards matching where, with their legalities, ordered by name.
func (r *CardRepository) queryCards(ctx context.Context, where string, args ...any) ([]*cards.Card, error) {
	query := `
		SELECT c.id, c.name, c.mana_value, c.mana_cost, c.colors, c.color_identity, c.type_line, c.oracle_text
		FROM cards c
		WHERE ` + where + `
		ORDER BY c.name, c.id
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*cards.Card
	byID := make(map[string]*cards.Card)
	for rows.Next() {
		var (
			card           cards.Card
			manaValue      sql.NullInt64
			manaCost       sql.NullString
			oracleText     sql.NullString
			colors, idents string
		)
		if err := rows.Scan(&card.ID, &card.Name, &manaValue, &manaCost, &colors, &idents, &card.TypeLine, &oracleText); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if manaValue.Valid {
			v := int(manaValue.Int64)
			card.ManaValue = &v
		}
		if manaCost.Valid {
			card.ManaCost = &manaCost.String
		}
		if oracleText.Valid {
			card.OracleText = &oracleText.String
		}
		card.Colors = cards.ParseColors(colors)
		card.ColorIdentity = cards.ParseColors(idents)
		card.Types = cards.TypesFromLine(card.TypeLine)

		result = append(result, &card)
		byID[card.ID] = &card
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	if len(result) == 0 {
		return result, nil
	}
	if err := r.loadLegalities(ctx, where, args, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CardRepository) loadLegalities(ctx context.Context, where string, args []any, byID map[string]*cards.Card) error {
	query := `
		SELECT card_id, format, legal
		FROM card_legalities
		WHERE card_id IN (SELECT c.id FROM cards c WHERE ` + where + `)
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query legalities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cardID, format string
			legal          bool
		)
		if err := rows.Scan(&cardID, &format, &legal); err != nil {
			return fmt.Errorf("failed to scan legality: %w", err)
		}
		card, ok := byID[cardID]
		if !ok {
			continue
		}
		if card.Legalities == nil {
			card.Legalities = make(map[string]bool)
		}
		card.Legalities[format] = legal
	}
	return rows.Err()
}

// colorColumn stores colors compactly in WUBRG order; colorless is "".
func colorColumn(colors []string) string {
	return strings.Join(cards.NormalizeColors(colors), "")
}
