package agents

import (
	"context"
	"time"

	"github.com/riskops/triage/domain/account"
	"github.com/riskops/triage/domain/card"
	"github.com/riskops/triage/domain/customer"
)

// profileDataStore is the minimal contract Profile needs from the Data
// Store. Kept separate from the richer store interfaces in
// infrastructure/database so this package never imports it.
type profileDataStore interface {
	GetCustomer(ctx context.Context, customerID string) (customer.Customer, error)
	ListCards(ctx context.Context, customerID string) ([]card.Card, error)
	ListAccounts(ctx context.Context, customerID string) ([]account.Account, error)
}

// Profile reads Customer + cards + accounts for customerId. Critical:
// failure aborts the run (spec.md §4.4).
type Profile struct {
	store   profileDataStore
	timeout time.Duration
}

func NewProfile(store profileDataStore, timeout time.Duration) *Profile {
	return &Profile{store: store, timeout: timeout}
}

func (p *Profile) Name() string           { return StepGetProfile }
func (p *Profile) Critical() bool         { return true }
func (p *Profile) Timeout() time.Duration { return p.timeout }

func (p *Profile) Run(rc *RunContext) (Result, error) {
	cust, err := p.store.GetCustomer(rc.Context, rc.CustomerID)
	if err != nil {
		return nil, err
	}
	cards, err := p.store.ListCards(rc.Context, rc.CustomerID)
	if err != nil {
		return nil, err
	}
	accounts, err := p.store.ListAccounts(rc.Context, rc.CustomerID)
	if err != nil {
		return nil, err
	}

	result := &ProfileResult{Customer: cust, Cards: cards, Accounts: accounts}
	rc.Profile = result
	return result, nil
}
