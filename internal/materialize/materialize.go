// Package materialize folds hydrated entity rows through a projection plan,
// reconstructing exactly the nested shape the caller selected.
//
// Materialization is a pure fold: it issues no queries and retains no
// reference to the input row. It walks only the projection tree, which
// mirrors the finite inclusion tree, so cyclic entity graphs (bidirectional
// relations) can never cause unbounded recursion.
package materialize

import (
	"github.com/nestq/nestq/internal/plan"
)

// Row reshapes one hydrated row according to the projection plan.
//
// Defaults are part of the contract: an empty root-column map passes the
// row's scalar values through unchanged, and a relation node with no
// explicit columns passes that relation through whole. A relation that is
// absent on the row is omitted from the output entirely, never emitted as a
// null placeholder.
func Row(row map[string]any, proj *plan.Projection) map[string]any {
	return project(row, proj.RootColumns, proj.Children)
}

// Rows reshapes a whole result set.
func Rows(rows []map[string]any, proj *plan.Projection) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = Row(row, proj)
	}
	return out
}

func project(row map[string]any, columns map[string]plan.ColumnSel, children map[string]*plan.RelationNode) map[string]any {
	out := make(map[string]any, len(row))

	if len(columns) == 0 {
		// No explicit selection: everything passes through. Relation
		// values are still shaped below, so skip their raw entries here.
		for key, value := range row {
			if _, shaped := children[key]; shaped {
				continue
			}
			out[key] = value
		}
	} else {
		for _, col := range columns {
			if value, ok := row[col.Field]; ok {
				out[col.OutName] = value
			}
		}
	}

	for relation, node := range children {
		value, ok := row[relation]
		if !ok || value == nil {
			continue
		}
		out[node.OutKey] = shape(value, node)
	}
	return out
}

func shape(value any, node *plan.RelationNode) any {
	switch v := value.(type) {
	case []map[string]any:
		shaped := make([]map[string]any, len(v))
		for i, elem := range v {
			shaped[i] = project(elem, node.Columns, node.Children)
		}
		return shaped

	case []any:
		shaped := make([]any, len(v))
		for i, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				shaped[i] = project(m, node.Columns, node.Children)
			} else {
				shaped[i] = elem
			}
		}
		return shaped

	case map[string]any:
		return project(v, node.Columns, node.Children)

	default:
		return value
	}
}
