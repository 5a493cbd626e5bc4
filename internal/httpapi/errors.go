package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

var statusByError = []struct {
	err    error
	status int
}{
	{backend.ErrNotFound, http.StatusNotFound},
	{backend.ErrConflict, http.StatusConflict},
	{backend.ErrDeleted, http.StatusGone},
	{backend.ErrLocked, http.StatusLocked},
	{backend.ErrNotOwnedByUser, http.StatusForbidden},
	{backend.ErrInvalid, http.StatusBadRequest},
	{backend.ErrUnauthenticated, http.StatusUnauthorized},
}

// statusFor maps service errors to response codes. Unknown errors are 500.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		h.writeError(w, r, status, "internal error")
	case http.StatusUnauthorized:
		h.unauthorized(w, r)
	default:
		h.writeError(w, r, status, err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
