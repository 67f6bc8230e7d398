package api

import (
	"errors"
	"net/http"
	"strconv"

	"graphgate/internal/domain"
)

// writeError maps an error onto the HTTP response. Pool exhaustion is
// transient and retryable (503 + Retry-After); everything else is a query
// failure (500). In production the body never carries internal detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var exhausted *domain.PoolExhaustedError
	if errors.As(err, &exhausted) {
		w.Header().Set("Retry-After", strconv.Itoa(int(exhausted.Timeout.Seconds())+1))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"code":    http.StatusServiceUnavailable,
			"message": "database busy, retry later",
		})
		return
	}

	message := "internal server error"
	if !h.production {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"code":    http.StatusInternalServerError,
		"message": message,
	})
}
