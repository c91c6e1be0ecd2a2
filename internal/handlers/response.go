package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ruralpay/ledger/internal/services"
)

const maxBodyBytes = 1_048_576 // 1 MB

var errTrailingData = errors.New("request body must only contain a single JSON object")

// decodeStrict reads exactly one JSON object with no unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// errorStatus maps service errors onto HTTP. It is the only place that does so.
func errorStatus(err error) (int, string) {
	switch {
	case services.IsValidationError(err):
		return http.StatusBadRequest, "Validation failed"
	case services.IsInsufficientFunds(err):
		return http.StatusUnprocessableEntity, "Insufficient funds"
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound, "Account not found"
	case errors.Is(err, services.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found"
	case services.IsTimeout(err):
		return http.StatusServiceUnavailable, "Account is busy, retry later"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func errorBody(err error) (int, services.ErrorResponse) {
	status, message := errorStatus(err)
	if status == http.StatusBadRequest {
		return status, services.NewErrorResponse(message, err)
	}
	return status, services.NewErrorResponse(message, nil)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}
