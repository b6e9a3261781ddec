package httpapi

import (
	"encoding/json"
	"net/http"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError encodes err as the ServiceError taxonomy's wire shape,
// falling back to a generic 500 for anything unclassified (spec.md §7).
func writeError(w http.ResponseWriter, err error) {
	svcErr := svcerrors.GetServiceError(err)
	if svcErr == nil {
		svcErr = svcerrors.Internal("", err)
	}
	writeJSON(w, svcErr.HTTPStatus, svcErr)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
