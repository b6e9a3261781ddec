// Package account models the customer's funding account.
package account

// Account is a customer's balance-carrying account.
type Account struct {
	ID                string
	CustomerID        string
	BalanceMinorUnits  int64
	Currency           string
}
