package nestq

import (
	"context"

	"github.com/nestq/nestq/internal/materialize"
	"github.com/nestq/nestq/internal/plan"
	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/internal/querysql"
)

// Builder accumulates query clauses immutably: every method returns a
// derived copy and never touches its receiver, so a partially built query
// can be held, forked, and reused across goroutines.
//
// Clause maps use the same document shape the YAML/JSON loaders accept:
// predicates keyed by field, relation, or combinator; inclusion trees;
// selection trees. Parsing and validation happen at the terminal call.
type Builder struct {
	db      *DB
	entity  string
	where   []map[string]any
	include []map[string]any
	sel     []map[string]any
	orders  []queryspec.OrderDocument
	skip    *int
	take    *int
}

func (b *Builder) clone() *Builder {
	next := *b
	next.where = append([]map[string]any(nil), b.where...)
	next.include = append([]map[string]any(nil), b.include...)
	next.sel = append([]map[string]any(nil), b.sel...)
	next.orders = append([]queryspec.OrderDocument(nil), b.orders...)
	return &next
}

// Where adds a predicate document. Multiple calls combine with AND.
func (b *Builder) Where(predicate map[string]any) *Builder {
	next := b.clone()
	next.where = append(next.where, predicate)
	return next
}

// Include adds an inclusion document. Later entries for the same relation
// deepen the earlier ones.
func (b *Builder) Include(relations map[string]any) *Builder {
	next := b.clone()
	next.include = append(next.include, relations)
	return next
}

// Select adds a selection document. Later entries for the same field win,
// except that a bare true never drops an earlier rename or narrowing for
// the same key.
func (b *Builder) Select(fields map[string]any) *Builder {
	next := b.clone()
	next.sel = append(next.sel, fields)
	return next
}

// OrderBy appends an order key. Path may cross relations with dots, which
// joins the path for ordering without fetching it.
func (b *Builder) OrderBy(path string, direction string) *Builder {
	next := b.clone()
	next.orders = append(next.orders, queryspec.OrderDocument{Field: path, Direction: direction})
	return next
}

// Skip sets the row offset.
func (b *Builder) Skip(n int) *Builder {
	next := b.clone()
	next.skip = &n
	return next
}

// Take caps the number of joined rows SQLite returns. With to-many
// includes this bounds raw rows, not distinct root entities.
func (b *Builder) Take(n int) *Builder {
	next := b.clone()
	next.take = &n
	return next
}

// Compile parses the accumulated clauses and compiles an execution plan.
// Every terminal goes through here, so each execution gets fresh aliases
// and parameter numbering.
func (b *Builder) Compile() (*plan.Plan, error) {
	doc := queryspec.Document{
		Entity:  b.entity,
		Where:   mergeWhere(b.where),
		Include: mergeDocs(b.include),
		Select:  mergeDocs(b.sel),
		OrderBy: b.orders,
		Skip:    b.skip,
		Take:    b.take,
	}

	spec, err := queryspec.ParseDocument(b.db.schema, doc)
	if err != nil {
		return nil, err
	}
	return plan.Compile(b.db.schema, spec)
}

// SQL renders the query this builder would execute, without executing it.
func (b *Builder) SQL() (string, map[string]any, error) {
	p, err := b.Compile()
	if err != nil {
		return "", nil, err
	}
	stmt := querysql.Select(p)
	return stmt.SQL, stmt.Params, nil
}

// Many executes the query and returns all matching entities, materialized
// through the selection.
func (b *Builder) Many(ctx context.Context) ([]map[string]any, error) {
	p, err := b.Compile()
	if err != nil {
		return nil, err
	}
	rows, err := b.db.engine.FetchMany(ctx, p)
	if err != nil {
		return nil, err
	}
	return materialize.Rows(rows, p.Projection), nil
}

// One executes the query and requires exactly one matching entity.
func (b *Builder) One(ctx context.Context) (map[string]any, error) {
	rows, err := b.Many(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &NoEntityFoundError{Entity: b.entity}
	case 1:
		return rows[0], nil
	default:
		return nil, &MultipleEntitiesFoundError{Entity: b.entity, Count: len(rows)}
	}
}

// Count returns the number of distinct root entities matching the filter.
// Paging and ordering do not apply.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	p, err := b.Compile()
	if err != nil {
		return 0, err
	}
	return b.db.engine.Count(ctx, p)
}

// Exists reports whether any root entity matches the filter.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	p, err := b.Compile()
	if err != nil {
		return false, err
	}
	return b.db.engine.Exists(ctx, p)
}

// ManyWithCount executes the query and the companion unpaged count in one
// call, for paginated listings.
func (b *Builder) ManyWithCount(ctx context.Context) ([]map[string]any, int64, error) {
	p, err := b.Compile()
	if err != nil {
		return nil, 0, err
	}
	rows, err := b.db.engine.FetchMany(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	count, err := b.db.engine.Count(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	return materialize.Rows(rows, p.Projection), count, nil
}

// mergeWhere combines accumulated predicate documents into one document,
// AND-ing when more than one was supplied.
func mergeWhere(parts []map[string]any) map[string]any {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		members := make([]any, len(parts))
		for i, part := range parts {
			members[i] = part
		}
		return map[string]any{"and": members}
	}
}

// mergeDocs merges document maps key-wise, recursing into nested maps so
// repeated Include/Select calls accumulate instead of clobbering.
func mergeDocs(parts []map[string]any) map[string]any {
	if len(parts) == 0 {
		return nil
	}
	out := make(map[string]any)
	for _, part := range parts {
		mergeInto(out, part)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		next, ok := value.(map[string]any)
		if !ok {
			// A later true leaf never flattens an earlier deep entry for
			// the same key; the deeper request subsumes it.
			if leaf, isBool := value.(bool); isBool && leaf {
				if _, deep := dst[key].(map[string]any); deep {
					continue
				}
			}
			dst[key] = value
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = make(map[string]any)
			dst[key] = existing
		}
		mergeInto(existing, next)
	}
}
