package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gridwise/layout-backend/internal/domain"
)

// handleError maps domain errors to HTTP statuses. Lock contention gets 423
// so clients can distinguish "wait for the holder" from a true conflict.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrLockDenied):
		writeError(w, http.StatusLocked, "region is locked by another session")
	case errors.Is(err, domain.ErrLockNotHeld):
		writeError(w, http.StatusConflict, "session does not hold the region lock")
	case errors.Is(err, domain.ErrRetryExhausted):
		writeError(w, http.StatusConflict, "conflict resolution retries exhausted")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "write conflicts with a newer revision")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrMalformedSnapshot):
		writeError(w, http.StatusUnprocessableEntity, "snapshot failed validation")
	case errors.Is(err, domain.ErrChannelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "real-time channel unavailable")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
