package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/card"
)

type cardRow struct {
	ID         string    `db:"id"`
	CustomerID string    `db:"customer_id"`
	Last4      string    `db:"last4"`
	Network    string    `db:"network"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r cardRow) toDomain() card.Card {
	return card.Card{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Last4:      r.Last4,
		Network:    card.Network(r.Network),
		Status:     card.Status(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

// ListCards returns every card owned by customerID.
func (s *Store) ListCards(ctx context.Context, customerID string) ([]card.Card, error) {
	var rows []cardRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, customer_id, last4, network, status, created_at FROM cards WHERE customer_id = $1 ORDER BY created_at`,
		customerID,
	)
	if err != nil {
		return nil, wrapErr("list_cards", err)
	}
	out := make([]card.Card, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// GetCard reads one card by id.
func (s *Store) GetCard(ctx context.Context, cardID string) (card.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, customer_id, last4, network, status, created_at FROM cards WHERE id = $1`, cardID)
	if err != nil {
		return card.Card{}, wrapGetErr("card", cardID, "get_card", err)
	}
	return row.toDomain(), nil
}

// CreateCard inserts a new card, assigning an id if none is set.
func (s *Store) CreateCard(ctx context.Context, c card.Card) (card.Card, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (id, customer_id, last4, network, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.CustomerID, c.Last4, string(c.Network), string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return card.Card{}, wrapErr("create_card", err)
	}
	return c, nil
}
