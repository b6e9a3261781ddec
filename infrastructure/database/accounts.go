package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/account"
)

type accountRow struct {
	ID               string `db:"id"`
	CustomerID       string `db:"customer_id"`
	BalanceMinorUnits int64  `db:"balance_minor_units"`
	Currency         string `db:"currency"`
}

func (r accountRow) toDomain() account.Account {
	return account.Account{
		ID:                r.ID,
		CustomerID:        r.CustomerID,
		BalanceMinorUnits: r.BalanceMinorUnits,
		Currency:          r.Currency,
	}
}

// ListAccounts returns every account owned by customerID.
func (s *Store) ListAccounts(ctx context.Context, customerID string) ([]account.Account, error) {
	var rows []accountRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, customer_id, balance_minor_units, currency FROM accounts WHERE customer_id = $1`,
		customerID,
	)
	if err != nil {
		return nil, wrapErr("list_accounts", err)
	}
	out := make([]account.Account, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateAccount inserts a new account, assigning an id if none is set.
func (s *Store) CreateAccount(ctx context.Context, a account.Account) (account.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, customer_id, balance_minor_units, currency) VALUES ($1, $2, $3, $4)`,
		a.ID, a.CustomerID, a.BalanceMinorUnits, a.Currency,
	)
	if err != nil {
		return account.Account{}, wrapErr("create_account", err)
	}
	return a, nil
}
