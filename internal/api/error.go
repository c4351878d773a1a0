package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/faddenpatrick/ironledger/internal/common"
)

// Error is the typed failure returned for any non-2xx response. Status is
// the HTTP status code; Detail carries the server's structured message when
// one was present in the body.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap maps a 401 onto common.ErrUnauthorized so callers can match it
// with errors.Is without depending on HTTP status codes.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return common.ErrUnauthorized
	}
	return nil
}

// IsAuthoritativeRejection reports whether err is a server-side rejection
// that retrying cannot fix: a 4xx other than 401 (auth expiry), 408
// (timeout) and 429 (throttling). Network failures and 5xx responses are
// considered transient.
func IsAuthoritativeRejection(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}
