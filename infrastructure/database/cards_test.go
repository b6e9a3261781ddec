package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/riskops/triage/domain/card"
)

func TestListCardsOrdersByCreatedAt(t *testing.T) {
	store, mock, closeFn := newTestStore(t)
	defer closeFn()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "customer_id", "last4", "network", "status", "created_at"}).
		AddRow("card-1", "cust-1", "1111", "visa", "ACTIVE", now).
		AddRow("card-2", "cust-1", "2222", "visa", "FROZEN", now.Add(time.Hour))
	mock.ExpectQuery(`SELECT id, customer_id, last4, network, status, created_at FROM cards WHERE customer_id = \$1 ORDER BY created_at`).
		WithArgs("cust-1").
		WillReturnRows(rows)

	cards, err := store.ListCards(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[1].Status != card.StatusFrozen {
		t.Fatalf("expected second card frozen, got %s", cards[1].Status)
	}
}

func TestCreateCardDefaultsCreatedAt(t *testing.T) {
	store, mock, closeFn := newTestStore(t)
	defer closeFn()

	mock.ExpectExec(`INSERT INTO cards`).WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := store.CreateCard(context.Background(), card.Card{CustomerID: "cust-1", Last4: "4242", Network: "visa", Status: card.StatusActive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", got)
	}
}
