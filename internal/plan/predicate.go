package plan

import (
	"fmt"
	"strings"

	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/schema"
)

// CompilePredicate walks the predicate tree and produces the filter text
// plus a flat named-parameter map. Relation conditions resolve through the
// alias registry, joining unjoined paths on demand; parameter names are
// unique within the compilation pass via a monotonic counter.
//
// A nil node compiles to an empty filter.
func (c *Context) CompilePredicate(node queryspec.Predicate) (string, map[string]any, error) {
	params := map[string]any{}
	if node == nil {
		return "", params, nil
	}
	text, err := c.compileNode(node, c.rootAlias, "", c.root, params)
	if err != nil {
		return "", nil, err
	}
	return text, params, nil
}

func (c *Context) compileNode(node queryspec.Predicate, alias, path string, ent *schema.Entity, params map[string]any) (string, error) {
	switch n := node.(type) {
	case queryspec.And:
		return c.compileCombinator(n.Nodes, " AND ", alias, path, ent, params)

	case queryspec.Or:
		return c.compileCombinator(n.Nodes, " OR ", alias, path, ent, params)

	case queryspec.FieldCondition:
		return c.compileFieldCondition(n, alias, ent, params)

	case queryspec.RelationCondition:
		childPath := n.Relation
		if path != "" {
			childPath = path + "." + n.Relation
		}
		entry, err := c.Resolve(childPath, false, "")
		if err != nil {
			return "", err
		}
		return c.compileNode(n.Node, entry.Alias, childPath, c.entityAt(childPath), params)

	default:
		return "", fmt.Errorf("unsupported predicate node type: %T", node)
	}
}

func (c *Context) compileCombinator(nodes []queryspec.Predicate, sep, alias, path string, ent *schema.Entity, params map[string]any) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, child := range nodes {
		text, err := c.compileNode(child, alias, path, ent, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *Context) compileFieldCondition(fc queryspec.FieldCondition, alias string, ent *schema.Entity, params map[string]any) (string, error) {
	field, ok := ent.Field(fc.Field)
	if !ok {
		return "", &queryspec.UnknownFieldError{
			Entity:    ent.Name,
			Field:     fc.Field,
			Fields:    ent.FieldNames(),
			Relations: ent.RelationNames(),
		}
	}
	column := alias + "." + field.Column

	parts := make([]string, 0, len(fc.Comparisons))
	for _, cmp := range fc.Comparisons {
		text, err := c.compileComparison(cmp, column, fc.Field, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (c *Context) compileComparison(cmp queryspec.Comparison, column, field string, params map[string]any) (string, error) {
	if cmp.IsOr() {
		// Intra-field OR: alternatives against the same column and alias.
		alternatives := make([]string, 0, len(cmp.Or))
		for _, group := range cmp.Or {
			parts := make([]string, 0, len(group))
			for _, gc := range group {
				text, err := c.compileComparison(gc, column, field, params)
				if err != nil {
					return "", err
				}
				parts = append(parts, text)
			}
			alt := strings.Join(parts, " AND ")
			if len(parts) > 1 {
				alt = "(" + alt + ")"
			}
			alternatives = append(alternatives, alt)
		}
		if len(alternatives) == 1 {
			return alternatives[0], nil
		}
		return "(" + strings.Join(alternatives, " OR ") + ")", nil
	}

	return renderOperator(cmp.Op, column, c.nextParam(field), cmp.Value, params)
}

// nextParam returns the next globally-unique parameter name for a field.
// The counter spans the whole compilation pass, so the same field filtered
// at multiple nesting levels never collides.
func (c *Context) nextParam(field string) string {
	name := fmt.Sprintf("%s_%d", field, c.paramSeq)
	c.paramSeq++
	return name
}
