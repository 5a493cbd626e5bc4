package middleware

import (
	"net/http"
	"strings"
)

// preflightMaxAge lets browsers cache a preflight for the cart PUTs a
// storefront sends on every edit.
const preflightMaxAge = "600"

// CORS lets browser storefronts call the cart store directly.
func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowOrigins) == 1 && allowOrigins[0] == "*"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if r.Method == http.MethodOptions {
				if writeCORSHeaders(w, origin, allowOrigins, allowAll) {
					w.Header().Set("Access-Control-Max-Age", preflightMaxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			writeCORSHeaders(w, origin, allowOrigins, allowAll)
			next.ServeHTTP(w, r)
		})
	}
}

// writeCORSHeaders reports whether the origin was granted.
func writeCORSHeaders(w http.ResponseWriter, origin string, allowOrigins []string, allowAll bool) bool {
	if origin == "" {
		return false
	}

	if !allowAll && !originAllowed(origin, allowOrigins) {
		return false
	}

	// reflect the origin, browsers refuse "*" together with credentials
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-Id")
	// the storefront reads the auth challenge to tell a bad login from a
	// locked or missing cart
	w.Header().Set("Access-Control-Expose-Headers", "X-Correlation-Id, WWW-Authenticate")
	return true
}

func originAllowed(origin string, allow []string) bool {
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(origin)) {
			return true
		}
	}
	return false
}
