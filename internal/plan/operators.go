package plan

import (
	"fmt"
	"strings"

	"github.com/nestq/nestq/internal/queryspec"
)

// bindKind is the parameter-binding rule attached to an operator template.
type bindKind int

const (
	// bindNone renders the template with the column only (IS NULL family).
	bindNone bindKind = iota

	// bindValue binds the operand under one named parameter.
	bindValue

	// bindContains / bindStartsWith / bindEndsWith bind the operand wrapped
	// in LIKE wildcards.
	bindContains
	bindStartsWith
	bindEndsWith

	// bindRange binds a two-element operand under <name>_start / <name>_end.
	bindRange

	// bindList expands an array operand into one named parameter per
	// element.
	bindList
)

// opEntry pairs a filter-fragment template with its binding rule. The table
// is fixed and stateless; rendering state (the parameter counter) lives on
// the Context.
type opEntry struct {
	template string
	kind     bindKind
}

var operatorTable = map[queryspec.Operator]opEntry{
	queryspec.OpEq:         {"%s = :%s", bindValue},
	queryspec.OpNe:         {"%s != :%s", bindValue},
	queryspec.OpLt:         {"%s < :%s", bindValue},
	queryspec.OpLte:        {"%s <= :%s", bindValue},
	queryspec.OpGt:         {"%s > :%s", bindValue},
	queryspec.OpGte:        {"%s >= :%s", bindValue},
	queryspec.OpLike:       {"%s LIKE :%s", bindValue},
	queryspec.OpILike:      {"%s LIKE :%s COLLATE NOCASE", bindValue},
	queryspec.OpNotLike:    {"%s NOT LIKE :%s", bindValue},
	queryspec.OpNotILike:   {"%s NOT LIKE :%s COLLATE NOCASE", bindValue},
	queryspec.OpContains:   {"%s LIKE :%s", bindContains},
	queryspec.OpStartsWith: {"%s LIKE :%s", bindStartsWith},
	queryspec.OpEndsWith:   {"%s LIKE :%s", bindEndsWith},
	queryspec.OpMatches:    {"%s REGEXP :%s", bindValue},
	queryspec.OpBetween:    {"%s BETWEEN :%s_start AND :%s_end", bindRange},
	queryspec.OpIn:         {"%s IN (%s)", bindList},
	queryspec.OpNotIn:      {"%s NOT IN (%s)", bindList},
	queryspec.OpIsNull:     {"%s IS NULL", bindNone},
	queryspec.OpIsNotNull:  {"%s IS NOT NULL", bindNone},
}

// renderOperator renders one operator application against a qualified
// column reference, binding parameters into params. paramBase is the
// already-unique parameter name for this comparison.
func renderOperator(op queryspec.Operator, column, paramBase string, operand any, params map[string]any) (string, error) {
	entry, ok := operatorTable[op]
	if !ok {
		// The parser rejects unknown tokens; reaching this means a spec
		// tree was built by hand with a bad operator.
		return "", &queryspec.UnsupportedOperatorError{Operator: string(op)}
	}

	switch entry.kind {
	case bindNone:
		return fmt.Sprintf(entry.template, column), nil

	case bindValue:
		params[paramBase] = operand
		return fmt.Sprintf(entry.template, column, paramBase), nil

	case bindContains, bindStartsWith, bindEndsWith:
		text := fmt.Sprintf("%v", operand)
		switch entry.kind {
		case bindContains:
			text = "%" + text + "%"
		case bindStartsWith:
			text = text + "%"
		case bindEndsWith:
			text = "%" + text
		}
		params[paramBase] = text
		return fmt.Sprintf(entry.template, column, paramBase), nil

	case bindRange:
		bounds, err := rangeOperand(operand)
		if err != nil {
			return "", fmt.Errorf("operator %q: %w", op, err)
		}
		params[paramBase+"_start"] = bounds[0]
		params[paramBase+"_end"] = bounds[1]
		return fmt.Sprintf(entry.template, column, paramBase, paramBase), nil

	case bindList:
		elems, err := listOperand(operand)
		if err != nil {
			return "", fmt.Errorf("operator %q: %w", op, err)
		}
		if len(elems) == 0 {
			// IN () is invalid SQL; an empty list matches nothing
			// (or everything, for notIn), by vacuous truth.
			if op == queryspec.OpNotIn {
				return "1 = 1", nil
			}
			return "1 = 0", nil
		}
		placeholders := make([]string, len(elems))
		for i, el := range elems {
			name := fmt.Sprintf("%s_%d", paramBase, i)
			params[name] = el
			placeholders[i] = ":" + name
		}
		return fmt.Sprintf(entry.template, column, strings.Join(placeholders, ", ")), nil

	default:
		return "", fmt.Errorf("operator %q: unhandled binding rule", op)
	}
}

func rangeOperand(operand any) ([]any, error) {
	list, err := listOperand(operand)
	if err != nil {
		return nil, err
	}
	if len(list) != 2 {
		return nil, fmt.Errorf("want a two-element range, got %d element(s)", len(list))
	}
	return list, nil
}

func listOperand(operand any) ([]any, error) {
	switch v := operand.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want an array operand, got %T", operand)
	}
}
