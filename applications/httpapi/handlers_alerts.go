package httpapi

import (
	"net/http"
	"strconv"
)

type customerSummaryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EmailMasked string `json:"emailMasked"`
	KYCLevel    string `json:"kycLevel"`
}

type transactionSummaryDTO struct {
	ID               string `json:"id"`
	Merchant         string `json:"merchant"`
	MCC              string `json:"mcc"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	Currency         string `json:"currency"`
}

type alertDTO struct {
	ID         string                `json:"id"`
	Risk       string                `json:"risk"`
	Status     string                `json:"status"`
	CreatedAt  string                `json:"createdAt"`
	Customer   customerSummaryDTO    `json:"customer"`
	SuspectTxn transactionSummaryDTO `json:"suspectTxn"`
}

const defaultAlertsLimit = 100

// handleListAlerts implements spec.md §6 "List Alerts": alerts sorted by
// createdAt descending, each with its customer and suspect-transaction
// summary embedded.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	alerts, err := s.store.ListAlerts(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]alertDTO, 0, len(alerts))
	for _, a := range alerts {
		dto := alertDTO{
			ID:        a.ID,
			Risk:      string(a.Risk),
			Status:    string(a.Status),
			CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		}

		if c, err := s.store.GetCustomer(r.Context(), a.CustomerID); err == nil {
			dto.Customer = customerSummaryDTO{ID: c.ID, Name: c.Name, EmailMasked: c.EmailMasked, KYCLevel: string(c.KYCLevel)}
		}
		if txn, err := s.store.GetTransaction(r.Context(), a.SuspectTxnID); err == nil {
			dto.SuspectTxn = transactionSummaryDTO{ID: txn.ID, Merchant: txn.Merchant, MCC: txn.MCC, AmountMinorUnits: txn.AmountMinorUnits, Currency: txn.Currency}
		}

		out = append(out, dto)
	}

	writeJSON(w, http.StatusOK, out)
}
