// Package shared holds response helpers used by every HTTP handler.
package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "kindred/pkg/domain-errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON serializes payload with the given status. Encoding failures are
// logged; by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError maps a domain error to its HTTP status and a stable error
// body. Internal errors are masked; the cause stays in the logs.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		logger.Error("internal error", "error", err)
		message = "internal error"
	}
	WriteJSON(w, logger, status, errorBody{Error: errorDetail{
		Code:    string(code),
		Message: message,
	}})
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
