package nestq

import (
	"errors"
	"fmt"

	"github.com/nestq/nestq/internal/engine"
	"github.com/nestq/nestq/internal/plan"
	"github.com/nestq/nestq/internal/queryspec"
)

// NoEntityFoundError is returned by One when the query matched nothing.
type NoEntityFoundError struct {
	Entity string
}

// Error implements the error interface.
func (e *NoEntityFoundError) Error() string {
	return fmt.Sprintf("no %s entity found", e.Entity)
}

// MultipleEntitiesFoundError is returned by One when the query matched more
// than one root entity.
type MultipleEntitiesFoundError struct {
	Entity string
	Count  int
}

// Error implements the error interface.
func (e *MultipleEntitiesFoundError) Error() string {
	return fmt.Sprintf("expected one %s entity, found %d", e.Entity, e.Count)
}

// IsNoEntityFound returns true if the error reports an empty One result.
// Uses errors.As to handle wrapped errors.
func IsNoEntityFound(err error) bool {
	var e *NoEntityFoundError
	return errors.As(err, &e)
}

// IsMultipleEntitiesFound returns true if the error reports an ambiguous
// One result. Uses errors.As to handle wrapped errors.
func IsMultipleEntitiesFound(err error) bool {
	var e *MultipleEntitiesFoundError
	return errors.As(err, &e)
}

// The compilation error predicates are re-exported here so callers can
// classify failures without importing internal packages.
var (
	// IsUnsupportedOperator reports an unknown comparison operator token.
	IsUnsupportedOperator = queryspec.IsUnsupportedOperator

	// IsUnknownField reports a predicate or selection key that names
	// neither a field nor a relation of its entity.
	IsUnknownField = queryspec.IsUnknownField

	// IsRelationNotFound reports a relation path segment that does not
	// exist on the entity it was resolved against.
	IsRelationNotFound = queryspec.IsRelationNotFound

	// IsProjectionRelationNotIncluded reports a selection on a relation
	// that was never included.
	IsProjectionRelationNotIncluded = plan.IsProjectionRelationNotIncluded

	// IsAliasConflict reports two relation paths claiming the same alias.
	IsAliasConflict = plan.IsAliasConflict

	// IsQueryError reports a statement execution failure.
	IsQueryError = engine.IsQueryError
)
