package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks a 401 from any authenticated call. Callers are
	// responsible for clearing the session store when they see it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnreachable marks a transport failure where no response arrived
	// at all, as opposed to an application-level error.
	ErrUnreachable = errors.New("backend unreachable")
)

// Error is an application-level error parsed from a non-2xx response.
type Error struct {
	Status  int    // HTTP status code
	Message string // backend-provided message, or a status-derived fallback
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) classify 401 responses.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
