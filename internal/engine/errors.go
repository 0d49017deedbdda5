package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// QueryError wraps a failed statement execution.
//
// Token is a UUIDv7 generated at failure time; it appears in the error text
// so a query failure reported by a caller can be matched to server-side
// diagnostics without reproducing the statement.
type QueryError struct {
	Token string
	SQL   string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Token, e.Err)
}

// Unwrap exposes the underlying driver error to errors.Is/errors.As.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if the error is a statement execution error.
// Uses errors.As to handle wrapped errors.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

func newQueryError(sqlText string, err error) *QueryError {
	return &QueryError{Token: newToken(), SQL: sqlText, Err: err}
}

// newToken generates a time-ordered token for error correlation.
func newToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
