// Package respond writes JSON bodies and maps domain errors to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/tenantlock"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status maps an error returned by a service to an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, tenantlock.ErrNotAcquired):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrExternalService):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// Error writes err as a JSON body. Server errors are logged and their detail
// hidden from the caller.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	msg := err.Error()

	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)

		msg = "internal error"
	}

	JSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

// BadRequest reports malformed input that never reached a service.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}
