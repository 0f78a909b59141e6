package assistant

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned by Query for a blank query string.
var ErrEmptyQuery = errors.New("assistant: query must not be empty")

// ErrInvalidScopeID is returned by Create for IDs outside [A-Za-z0-9_-]{1,64}.
var ErrInvalidScopeID = errors.New("assistant: invalid scope id")

// ScopeNotFoundError is returned for operations on a scope that was never
// created or has been deleted.
type ScopeNotFoundError struct {
	ScopeID string
}

func (e *ScopeNotFoundError) Error() string {
	return fmt.Sprintf("assistant: scope %q not found", e.ScopeID)
}
