package mist

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidMAC is returned when a MAC address cannot be normalized.
	ErrInvalidMAC = errors.New("invalid MAC address")

	// ErrNoOrg is returned when no organization can be determined for
	// the API token.
	ErrNoOrg = errors.New("no organization found for this API token")
)

// APIError is a non-2xx response from the Mist cloud.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("mist API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("mist API error (status %d)", e.StatusCode)
}

// IsNotFound reports whether err is a vendor 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthError reports whether err is a vendor 401/403, i.e. a bad or
// under-privileged token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
