// Package kb models knowledge-base documents the engine cites from.
package kb

// Doc is a read-only knowledge-base article.
type Doc struct {
	ID          string
	Title       string
	Anchor      string
	ContentText string
	// Metadata is an optional structured JSON blob (tags, source, etc.)
	// queried via gjson by the retriever when present.
	Metadata string
}
