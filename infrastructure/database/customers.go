package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/customer"
)

type customerRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	EmailMasked string    `db:"email_masked"`
	KYCLevel    string    `db:"kyc_level"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r customerRow) toDomain() customer.Customer {
	return customer.Customer{
		ID:          r.ID,
		Name:        r.Name,
		EmailMasked: r.EmailMasked,
		KYCLevel:    customer.KYCLevel(r.KYCLevel),
		CreatedAt:   r.CreatedAt,
	}
}

// GetCustomer reads one customer by id.
func (s *Store) GetCustomer(ctx context.Context, customerID string) (customer.Customer, error) {
	var row customerRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, email_masked, kyc_level, created_at FROM customers WHERE id = $1`, customerID)
	if err != nil {
		return customer.Customer{}, wrapGetErr("customer", customerID, "get_customer", err)
	}
	return row.toDomain(), nil
}

// CreateCustomer inserts a new customer, assigning an id if none is set.
func (s *Store) CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, email_masked, kyc_level, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.EmailMasked, string(c.KYCLevel), c.CreatedAt,
	)
	if err != nil {
		return customer.Customer{}, wrapErr("create_customer", err)
	}
	return c, nil
}

// UpdateKYCLevel mutates a customer's KYC standing; the only field the
// data model allows mutating post-creation (spec.md §3).
func (s *Store) UpdateKYCLevel(ctx context.Context, customerID string, level customer.KYCLevel) error {
	res, err := s.db.ExecContext(ctx, `UPDATE customers SET kyc_level = $1 WHERE id = $2`, string(level), customerID)
	if err != nil {
		return wrapErr("update_kyc_level", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update_kyc_level", err)
	}
	if n == 0 {
		return notFound("customer", customerID)
	}
	return nil
}
