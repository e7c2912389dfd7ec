// pattern: Functional Core

package web

import (
	"encoding/json"
	"net/http"

	"repodeck/internal/faults"
	"repodeck/internal/gitexec"
)

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps domain errors to HTTP statuses: missing entities to
// 404, rejected input to 400, uniqueness violations to 409, timed-out git
// commands to 504, and everything a git command printed to stderr travels
// verbatim in a 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case faults.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case faults.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case faults.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case gitexec.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads the request body into v. An empty body is an error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return faults.Invalid("invalid request body: %v", err)
	}
	return nil
}
