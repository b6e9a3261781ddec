// Package card models payment cards and their lifecycle transitions.
package card

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a card.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusFrozen  Status = "FROZEN"
	StatusExpired Status = "EXPIRED"
)

// Network identifies the card scheme (visa, mastercard, ...).
type Network string

// Card is a payment instrument owned by a customer.
type Card struct {
	ID         string
	CustomerID string
	Last4      string
	Network    Network
	Status     Status
	CreatedAt  time.Time
}

// CanFreeze reports whether the card is eligible for a freeze transition.
// Only ACTIVE cards may move to FROZEN; EXPIRED is terminal.
func (c Card) CanFreeze() bool {
	return c.Status == StatusActive
}

// ErrAlreadyFrozen signals the freeze action is already satisfied (idempotent success).
var ErrAlreadyFrozen = fmt.Errorf("card already frozen")
