package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s %s: status %d", e.Service, e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s %s: status %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Message)
}

// HasStatus reports whether err is a StatusError with one of the given codes.
func HasStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, code := range codes {
		if se.StatusCode == code {
			return true
		}
	}
	return false
}

// IsConflict reports whether the store refused a cart identity because the
// addressed cart is locked or gone.
func IsConflict(err error) bool {
	return HasStatus(err, http.StatusLocked, http.StatusGone)
}

// IsUnauthorized reports whether the credentials were rejected.
func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}
