package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"qmoney/internal/core"
	applog "qmoney/internal/log"
	"qmoney/internal/middleware/trace"
	"qmoney/internal/services"
)

// errBadRequest marks malformed input: undecodable bodies and query
// parameters that are not numbers.
var errBadRequest = errors.New("malformed request")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidTarget),
		errors.Is(err, services.ErrEmptyInput),
		errors.Is(err, services.ErrAmountMissing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrParseInFlight):
		return http.StatusConflict
	case errors.Is(err, services.ErrParseFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and answers with its mapped status. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldPath, r.URL.Path, applog.FieldError, err)
		msg = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldPath, r.URL.Path, applog.FieldError, err)
	}
	if errors.Is(err, services.ErrParseFailed) {
		msg = services.ErrParseFailed.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}
