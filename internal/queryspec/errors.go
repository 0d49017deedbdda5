package queryspec

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedOperatorError reports an unknown comparison-operator token.
// Compilation stops immediately; no partial filter is produced.
type UnsupportedOperatorError struct {
	Operator string
	Field    string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q on field %q", e.Operator, e.Field)
}

// IsUnsupportedOperator reports whether err is an UnsupportedOperatorError.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedOperator(err error) bool {
	var ue *UnsupportedOperatorError
	return errors.As(err, &ue)
}

// UnknownFieldError reports a predicate or selection key that names neither
// a field nor a relation of the entity. Carries the valid names so the
// caller can see what was available, mirroring RelationNotFound.
type UnknownFieldError struct {
	Entity    string
	Field     string
	Fields    []string
	Relations []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("entity %q has no field or relation %q (fields: %s; relations: %s)",
		e.Entity, e.Field,
		strings.Join(e.Fields, ", "),
		strings.Join(e.Relations, ", "))
}

// IsUnknownField reports whether err is an UnknownFieldError.
func IsUnknownField(err error) bool {
	var ue *UnknownFieldError
	return errors.As(err, &ue)
}

// RelationNotFoundError reports a relation-path segment with no matching
// relation on the entity being resolved. Raised both while parsing
// inclusion trees and while resolving paths during compilation; the
// Available list makes a typo immediately visible.
type RelationNotFoundError struct {
	Entity    string
	Relation  string
	Path      string // full dotted path being resolved, when known
	Available []string
}

func (e *RelationNotFoundError) Error() string {
	msg := fmt.Sprintf("entity %q has no relation %q", e.Entity, e.Relation)
	if e.Path != "" {
		msg += fmt.Sprintf(" (resolving path %q)", e.Path)
	}
	return msg + fmt.Sprintf("; available relations: %s", strings.Join(e.Available, ", "))
}

// IsRelationNotFound reports whether err is a RelationNotFoundError.
func IsRelationNotFound(err error) bool {
	var re *RelationNotFoundError
	return errors.As(err, &re)
}
