package pkmn

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedQuery is returned for queries that are not of the form
	// kind/ref, optionally prefixed by the API root.
	ErrMalformedQuery = errors.New("pkmn: malformed query")

	// ErrTooFewArguments is returned when a lookup is missing its ref.
	ErrTooFewArguments = errors.New("pkmn: too few arguments")

	// ErrNotFound is returned when the upstream has no such resource.
	ErrNotFound = errors.New("pkmn: resource not found")

	// ErrNoLink is returned by Follow when the field is not a linked resource.
	ErrNoLink = errors.New("pkmn: field does not link to a resource")
)

// QueryError records the query that was rejected before any request was made.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap maps 404 onto ErrNotFound so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}
