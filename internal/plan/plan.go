package plan

import (
	"strings"

	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/schema"
)

// OrderClause is one resolved ORDER BY key.
type OrderClause struct {
	Alias  string
	Column string
	Desc   bool
}

// Plan is the compiled form of one queryspec.Spec: everything the SQL
// renderer and the materializer need, with no remaining references to the
// compilation context.
type Plan struct {
	Entity    *schema.Entity
	RootAlias string
	Joins     []*Join
	Filter    string
	Params    map[string]any
	Projection *Projection
	Orders    []OrderClause
	Skip      *int
	Take      *int
}

// Compile turns an immutable spec into a Plan inside a fresh context.
// Inclusions are planned first so that selections can look their relations
// up; the alias registry makes the predicate/inclusion order irrelevant for
// join identity.
func Compile(sch *schema.Schema, spec queryspec.Spec) (*Plan, error) {
	c, err := NewContext(sch, spec.Entity, "")
	if err != nil {
		return nil, err
	}

	if err := c.PlanInclusion(spec.Includes); err != nil {
		return nil, err
	}

	filter, params, err := c.CompilePredicate(spec.Predicate)
	if err != nil {
		return nil, err
	}

	if err := c.PlanSelection(spec.Selection); err != nil {
		return nil, err
	}

	orders, err := c.compileOrders(spec.Orders)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Entity:     c.root,
		RootAlias:  c.rootAlias,
		Joins:      c.joins,
		Filter:     filter,
		Params:     params,
		Projection: c.projection,
		Orders:     orders,
		Skip:       spec.Skip,
		Take:       spec.Take,
	}, nil
}

// compileOrders resolves order keys (bare fields or dotted relation paths)
// and appends the root primary key as a stable tiebreak, so that ties on
// the caller's sort keys never reorder across executions.
func (c *Context) compileOrders(keys []queryspec.OrderKey) ([]OrderClause, error) {
	orders := make([]OrderClause, 0, len(keys)+1)

	for _, key := range keys {
		relPath, fieldName := splitOrderPath(key.Path)

		entry, err := c.Resolve(relPath, false, "")
		if err != nil {
			return nil, err
		}
		ent := c.entityAt(relPath)
		field, ok := ent.Field(fieldName)
		if !ok {
			return nil, &queryspec.UnknownFieldError{
				Entity:    ent.Name,
				Field:     fieldName,
				Fields:    ent.FieldNames(),
				Relations: ent.RelationNames(),
			}
		}
		orders = append(orders, OrderClause{
			Alias:  entry.Alias,
			Column: field.Column,
			Desc:   key.Direction == queryspec.Desc,
		})
	}

	pk := c.root.PrimaryKey()
	tiebreak := OrderClause{Alias: c.rootAlias, Column: pk.Column}
	for _, o := range orders {
		if o.Alias == tiebreak.Alias && o.Column == tiebreak.Column {
			return orders, nil
		}
	}
	return append(orders, tiebreak), nil
}

// splitOrderPath splits "posts.comments.body" into ("posts.comments",
// "body"); a bare field name has an empty relation path.
func splitOrderPath(path string) (string, string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
