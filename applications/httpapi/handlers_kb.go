package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

const kbSearchMaxLimit = 50

type kbResultDTO struct {
	DocID          string `json:"docId"`
	Title          string `json:"title"`
	Anchor         string `json:"anchor"`
	Extract        string `json:"extract"`
	RelevanceScore int    `json:"relevanceScore"`
}

type kbSearchResponse struct {
	Results      []kbResultDTO `json:"results"`
	TotalResults int           `json:"totalResults"`
	Query        string        `json:"query"`
}

// handleKBSearch implements spec.md §6 "KB Search": q (1-500 chars),
// optional limit (<=50), scored against the KB Retriever's fixed
// vocabulary and the query's own tokens.
func (s *Server) handleKBSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || len(q) > 500 {
		writeError(w, svcerrors.Validation("q must be 1-500 characters", "q"))
		return
	}

	limit := kbSearchMaxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > kbSearchMaxLimit {
			writeError(w, svcerrors.Validation("limit must be a positive integer no greater than 50", "limit"))
			return
		}
		limit = n
	}

	results, citations := s.retriever.Search(r.Context(), []string{q})
	_ = citations // citations accompany the triage decision, not this ad-hoc search

	if len(results) > limit {
		results = results[:limit]
	}
	dtos := make([]kbResultDTO, len(results))
	for i, res := range results {
		dtos[i] = kbResultDTO{DocID: res.DocID, Title: res.Title, Anchor: res.Anchor, Extract: res.Extract, RelevanceScore: res.RelevanceScore}
	}

	writeJSON(w, http.StatusOK, kbSearchResponse{Results: dtos, TotalResults: len(dtos), Query: q})
}
