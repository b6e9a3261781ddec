package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/policy"
)

type policyRow struct {
	ID          string `db:"id"`
	Code        string `db:"code"`
	Title       string `db:"title"`
	ContentText string `db:"content_text"`
	Priority    int    `db:"priority"`
}

func (r policyRow) toDomain() policy.Policy {
	return policy.Policy{ID: r.ID, Code: r.Code, Title: r.Title, ContentText: r.ContentText, Priority: r.Priority}
}

// ListPolicies returns every compliance policy document, ordered by
// Priority so citation ordering (spec.md §4.3) is stable without an
// in-memory sort.
func (s *Store) ListPolicies(ctx context.Context) ([]policy.Policy, error) {
	var rows []policyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, code, title, content_text, priority FROM policies ORDER BY priority DESC`)
	if err != nil {
		return nil, wrapErr("list_policies", err)
	}
	out := make([]policy.Policy, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreatePolicy inserts a compliance policy document, assigning an id if
// none is set.
func (s *Store) CreatePolicy(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policies (id, code, title, content_text, priority) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Code, p.Title, p.ContentText, p.Priority,
	)
	if err != nil {
		return policy.Policy{}, wrapErr("create_policy", err)
	}
	return p, nil
}
