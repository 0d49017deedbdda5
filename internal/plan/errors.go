package plan

import (
	"errors"
	"fmt"
)

// ProjectionRelationNotIncludedError reports a selection that references a
// relation path with no prior inclusion. Selection never joins on its own:
// an output shape the caller forgot to include is a caller bug, not a hint.
type ProjectionRelationNotIncludedError struct {
	Path string
}

func (e *ProjectionRelationNotIncludedError) Error() string {
	return fmt.Sprintf("selection references relation %q which was not included; add it to the inclusion tree first", e.Path)
}

// IsProjectionRelationNotIncluded reports whether err is a
// ProjectionRelationNotIncludedError. Uses errors.As to handle wrapping.
func IsProjectionRelationNotIncluded(err error) bool {
	var pe *ProjectionRelationNotIncludedError
	return errors.As(err, &pe)
}

// AliasConflictError reports two different relation paths mapping to the
// same alias. The registry synthesizes aliases deterministically from paths
// and schema validation keeps underscores out of relation names, so two
// paths can never flatten to the same alias; hitting this is a core bug
// or a caller-supplied alias override colliding with a synthesized one.
type AliasConflictError struct {
	Alias        string
	ExistingPath string
	NewPath      string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("alias %q already maps to path %q, cannot reuse it for %q",
		e.Alias, e.ExistingPath, e.NewPath)
}

// IsAliasConflict reports whether err is an AliasConflictError.
func IsAliasConflict(err error) bool {
	var ae *AliasConflictError
	return errors.As(err, &ae)
}
