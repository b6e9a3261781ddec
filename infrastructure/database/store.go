// Package database implements the Data Store (spec.md §3/§4 data model)
// over Postgres.
//
// Grounded on infrastructure/database/repository_interface.go (generic
// repository contract) and applications/storage/postgres/store_secrets.go
// in the teacher repo for the concrete CRUD idiom: database/sql with $N
// placeholders and uuid.NewString() ids, generalized here to sqlx for
// struct scanning and spread across one file per entity instead of one
// generic repository.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

// Store is the shared Postgres handle every entity-specific file's
// methods are defined on.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-connected sqlx.DB. Connection lifecycle (Open,
// Ping, pool sizing) is the caller's responsibility at wiring time.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func wrapErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	return svcerrors.StoreError(operation, err)
}

func notFound(resource, id string) error {
	return svcerrors.NotFound(resource, id)
}

// wrapGetErr maps a single-row lookup's sql.ErrNoRows to the NotFound
// taxonomy rather than a generic store failure, so callers (httpapi in
// particular) can tell "doesn't exist" apart from "the database is down".
func wrapGetErr(resource, id, operation string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return notFound(resource, id)
	}
	return wrapErr(operation, err)
}

func errAlreadyTerminal(runID string) error {
	return fmt.Errorf("run %s is already terminal", runID)
}

func marshalReasons(reasons []string) ([]byte, error) {
	if reasons == nil {
		reasons = []string{}
	}
	return json.Marshal(reasons)
}

func unmarshalReasons(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var reasons []string
	if err := json.Unmarshal(raw, &reasons); err != nil {
		return nil, err
	}
	return reasons, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error including a panic recovered and re-raised (spec.md §3
// invariant 6, §4.9 "all writes... within a single transaction").
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
