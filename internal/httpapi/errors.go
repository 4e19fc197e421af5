package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"artledger.org/internal/chain"
)

// handleCoreError maps the core error taxonomy onto HTTP statuses. Unknown
// errors are hidden behind a generic 500.
func handleCoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, chain.ErrUnauthorized):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, chain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, chain.ErrDuplicateHash),
		errors.Is(err, chain.ErrListingActive),
		errors.Is(err, chain.ErrListingInactive),
		errors.Is(err, chain.ErrListingExpired):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, chain.ErrInsufficientPayment),
		errors.Is(err, chain.ErrInsufficientFunds):
		writeError(w, r, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, chain.ErrTransferFailed):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
