package service

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports missing or invalid OAuth client settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthExchange reports a failed token exchange or account lookup.
	ErrAuthExchange = errors.New("auth exchange failed")

	// ErrNotLoggedIn is returned when no stored token exists.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrRateLimitExceeded is returned after the retry budget for 429 responses is spent.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrMissingResource reports a required remote resource that does not exist,
	// such as a project without a to-do set.
	ErrMissingResource = errors.New("missing resource")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for ids the backend cannot address.
	ErrInvalidID = errors.New("invalid id")

	// ErrPageLimit is returned when pagination stops at the page cap.
	ErrPageLimit = errors.New("page limit reached")
)

// APIError is a non-success response from the remote API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// IsAuthError reports whether err means the user must fix credentials or log in.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAuthExchange) || errors.Is(err, ErrNotLoggedIn) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
