// Package kbsearch implements the KB Retriever: a term-scored search over
// stored knowledge-base documents, driven by the reasons RiskSignals
// surfaces (spec.md §4.3).
package kbsearch

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/riskops/triage/domain/kb"
)

const (
	maxResults    = 5
	snippetMax    = 150
	minTokenLen   = 4
)

// fraudVocabulary is the fixed-vocabulary term set always considered in
// addition to tokens extracted from reasons.
var fraudVocabulary = []string{"velocity", "device", "location", "merchant", "dispute", "fraud", "otp", "freeze"}

// citationsByKeyword maps a reason keyword to a canonical reference note.
var citationsByKeyword = map[string]string{
	"velocity":  "Reference: Transaction Velocity Guidelines",
	"device":    "Reference: Device Trust Policy",
	"location":  "Reference: Geolocation Risk Policy",
	"merchant":  "Reference: Merchant Risk Classification",
	"dispute":   "Reference: Dispute Handling Procedure",
	"otp":       "Reference: One-Time Password Verification Policy",
	"freeze":    "Reference: Card Freeze Authorization Policy",
}

var wordPattern = regexp.MustCompile(`[A-Za-z]{4,}`)

// Result is one ranked KB hit.
type Result struct {
	DocID          string
	Title          string
	Anchor         string
	Extract        string
	RelevanceScore int
}

// Store is the read-only KB surface the retriever needs.
type Store interface {
	ListDocs(ctx context.Context) ([]kb.Doc, error)
}

// Retriever scores KB docs against a set of reasons.
type Retriever struct {
	store Store
}

func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Search returns up to 5 ranked results and contextual citations for the
// given reasons. It never errors outward: a store failure yields an empty
// result set (spec.md §4.3 "Failure returns empty results — never throws").
func (r *Retriever) Search(ctx context.Context, reasons []string) ([]Result, []string) {
	docs, err := r.store.ListDocs(ctx)
	if err != nil || len(docs) == 0 {
		return nil, citationsFor(reasons)
	}

	terms := extractTerms(reasons)
	if len(terms) == 0 {
		return nil, citationsFor(reasons)
	}

	var scored []Result
	for _, doc := range docs {
		score, firstTerm := scoreDoc(doc, terms)
		if score <= 0 {
			continue
		}
		scored = append(scored, Result{
			DocID:          doc.ID,
			Title:          doc.Title,
			Anchor:         doc.Anchor,
			Extract:        snippet(doc.ContentText, firstTerm),
			RelevanceScore: score,
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].RelevanceScore > scored[j].RelevanceScore })
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored, citationsFor(reasons)
}

func extractTerms(reasons []string) []string {
	seen := map[string]bool{}
	var terms []string
	add := func(t string) {
		t = strings.ToLower(t)
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	for _, reason := range reasons {
		for _, word := range wordPattern.FindAllString(reason, -1) {
			if len(word) >= minTokenLen {
				add(word)
			}
		}
	}
	for _, term := range fraudVocabulary {
		add(term)
	}
	return terms
}

func scoreDoc(doc kb.Doc, terms []string) (int, string) {
	title := strings.ToLower(doc.Title)
	body := strings.ToLower(doc.ContentText)

	score := 0
	firstTerm := ""
	for _, term := range terms {
		titleMatches := strings.Count(title, term)
		bodyMatches := strings.Count(body, term)
		if titleMatches == 0 && bodyMatches == 0 {
			continue
		}
		score += 3*titleMatches + bodyMatches
		if firstTerm == "" {
			firstTerm = term
		}
	}
	return score, firstTerm
}

// snippet windows a ≤150-char extract around the first occurrence of term
// in text, including ellipses when either edge is truncated.
func snippet(text, term string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(term))
	if idx < 0 {
		if len(text) <= snippetMax {
			return text
		}
		return text[:snippetMax-3] + "..."
	}

	const halfWindow = 60
	start := idx - halfWindow
	prefix := ""
	if start <= 0 {
		start = 0
	} else {
		prefix = "..."
	}
	end := idx + len(term) + halfWindow
	suffix := ""
	if end >= len(text) {
		end = len(text)
	} else {
		suffix = "..."
	}

	out := prefix + text[start:end] + suffix
	if len(out) > snippetMax {
		out = out[:snippetMax-3] + "..."
	}
	return out
}

func citationsFor(reasons []string) []string {
	seen := map[string]bool{}
	var citations []string
	joined := strings.ToLower(strings.Join(reasons, " "))
	for keyword, citation := range citationsByKeyword {
		if strings.Contains(joined, keyword) && !seen[citation] {
			seen[citation] = true
			citations = append(citations, citation)
		}
	}
	return citations
}

// MetadataTag reads a top-level string field out of a doc's JSON metadata
// blob, returning "" when the doc has no metadata.
func MetadataTag(doc kb.Doc, field string) string {
	if doc.Metadata == "" {
		return ""
	}
	return gjson.Get(doc.Metadata, field).String()
}
