package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nestq/nestq/internal/plan"
	"github.com/nestq/nestq/internal/querysql"
)

// Querier is the read surface the engine needs from a database handle.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Engine executes compiled plans against a single database.
type Engine struct {
	db Querier
}

// New creates an engine over the given database handle.
func New(db Querier) *Engine {
	return &Engine{db: db}
}

// FetchMany executes the plan's row query and returns hydrated entity rows,
// one per distinct root entity, in statement order.
func (e *Engine) FetchMany(ctx context.Context, p *plan.Plan) ([]map[string]any, error) {
	stmt := querysql.Select(p)

	raw, err := e.queryRaw(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return Hydrate(raw, p), nil
}

// Count executes the plan's companion count query.
func (e *Engine) Count(ctx context.Context, p *plan.Plan) (int64, error) {
	stmt := querysql.Count(p)

	rows, err := e.db.Query(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return 0, newQueryError(stmt.SQL, err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("scan count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	return count, nil
}

// Exists executes the plan's existence probe.
func (e *Engine) Exists(ctx context.Context, p *plan.Plan) (bool, error) {
	stmt := querysql.Exists(p)

	rows, err := e.db.Query(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return false, newQueryError(stmt.SQL, err)
	}
	defer rows.Close()

	var exists bool
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, fmt.Errorf("scan exists: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("rows iteration: %w", err)
	}
	return exists, nil
}

// queryRaw runs the statement and scans every row into a map keyed by the
// rendered column aliases.
func (e *Engine) queryRaw(ctx context.Context, stmt querysql.Statement) ([]map[string]any, error) {
	rows, err := e.db.Query(ctx, stmt.SQL, stmt.Args()...)
	if err != nil {
		return nil, newQueryError(stmt.SQL, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var raw []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, name := range columns {
			record[name] = normalizeValue(values[i])
		}
		raw = append(raw, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return raw, nil
}

// normalizeValue maps driver values onto the small set of types callers see.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
