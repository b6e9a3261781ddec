package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestFreezeCardAlreadyFrozenIsIdempotent(t *testing.T) {
	store, mock, closeFn := newTestStore(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM cards WHERE id = \$1 FOR UPDATE`).
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("FROZEN"))
	mock.ExpectCommit()

	alreadyFrozen, _, err := store.FreezeCard(context.Background(), "card-1", "", "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !alreadyFrozen {
		t.Fatal("expected alreadyFrozen=true for a card already in FROZEN status")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFreezeCardRejectsExpiredCard(t *testing.T) {
	store, mock, closeFn := newTestStore(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM cards WHERE id = \$1 FOR UPDATE`).
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("EXPIRED"))
	mock.ExpectRollback()

	_, _, err := store.FreezeCard(context.Background(), "card-1", "", "agent-1")
	if err == nil {
		t.Fatal("expected error freezing an expired card")
	}
}

func TestFreezeCardFreezesActiveCardAndOpensCase(t *testing.T) {
	store, mock, closeFn := newTestStore(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM cards WHERE id = \$1 FOR UPDATE`).
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectExec(`UPDATE cards SET status = \$1 WHERE id = \$2`).
		WithArgs("FROZEN", "card-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT customer_id FROM cards WHERE id = \$1`).
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow("cust-1"))
	mock.ExpectExec(`INSERT INTO cases`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO case_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	alreadyFrozen, c, err := store.FreezeCard(context.Background(), "card-1", "", "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alreadyFrozen {
		t.Fatal("expected alreadyFrozen=false for a freshly frozen card")
	}
	if c.ID == "" {
		t.Fatalf("expected an assigned case id, got %+v", c)
	}
}
