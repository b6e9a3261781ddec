package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/kb"
)

type kbDocRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Anchor      string         `db:"anchor"`
	ContentText string         `db:"content_text"`
	Metadata    sql.NullString `db:"metadata"`
}

func (r kbDocRow) toDomain() kb.Doc {
	return kb.Doc{ID: r.ID, Title: r.Title, Anchor: r.Anchor, ContentText: r.ContentText, Metadata: r.Metadata.String}
}

// ListDocs returns every KB document; the KB Retriever scores and ranks
// them in memory (spec.md §4.3).
func (s *Store) ListDocs(ctx context.Context) ([]kb.Doc, error) {
	var rows []kbDocRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, title, anchor, content_text, metadata FROM kb_docs`)
	if err != nil {
		return nil, wrapErr("list_kb_docs", err)
	}
	out := make([]kb.Doc, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateDoc inserts a KB document, assigning an id if none is set.
func (s *Store) CreateDoc(ctx context.Context, doc kb.Doc) (kb.Doc, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kb_docs (id, title, anchor, content_text, metadata) VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.Title, doc.Anchor, doc.ContentText, nullable(doc.Metadata),
	)
	if err != nil {
		return kb.Doc{}, wrapErr("create_kb_doc", err)
	}
	return doc, nil
}
