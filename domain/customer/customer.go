// Package customer models the customer entity and its KYC lifecycle.
package customer

import "time"

// KYCLevel is the identity-verification level assigned to a customer.
type KYCLevel string

const (
	KYCPending    KYCLevel = "pending"
	KYCVerified   KYCLevel = "verified"
	KYCRestricted KYCLevel = "restricted"
)

// Customer is the account holder a triage run investigates.
type Customer struct {
	ID           string
	Name         string
	EmailMasked  string
	KYCLevel     KYCLevel
	CreatedAt    time.Time
}

// Restricted reports whether write actions must be blocked for this customer.
func (c Customer) Restricted() bool {
	return c.KYCLevel == KYCRestricted
}
