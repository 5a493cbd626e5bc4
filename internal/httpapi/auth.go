package httpapi

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
)

type ctxKey string

const ctxUser ctxKey = "user"

// BasicAuth authenticates the request with the user id and password of the
// Authorization header and stores the user in the request context.
func (h *Handler) BasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, password, ok := r.BasicAuth()
		if !ok {
			h.unauthorized(w, r)
			return
		}

		u, err := h.svc.Authenticate(r.Context(), id, password)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, u)))
	})
}

func userFromContext(ctx context.Context) (backend.User, bool) {
	u, ok := ctx.Value(ctxUser).(backend.User)
	return u, ok
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="cartstore"`)
	h.writeError(w, r, http.StatusUnauthorized, "authentication required")
}
