// Package transaction models an immutable card transaction record.
package transaction

import (
	"strconv"
	"time"
)

// Transaction is a single card charge. Immutable after insert.
type Transaction struct {
	ID               string
	CustomerID       string
	CardID           string
	MCC              string
	Merchant         string
	AmountMinorUnits int64
	Currency         string
	TS               time.Time
	DeviceID         string
	Country          string
	City             string
}

// DedupKey returns the natural key used to detect duplicate ingestion:
// unique by (customerId, merchant, amountMinorUnits, ts).
func (t Transaction) DedupKey() string {
	return t.CustomerID + "|" + t.Merchant + "|" + strconv.FormatInt(t.AmountMinorUnits, 10) + "|" + t.TS.Format(time.RFC3339Nano)
}
