// Package querysql renders a compiled plan to parameterized SQL for SQLite.
//
// Every rendered query carries an ORDER BY ending in the root primary key,
// so result order is total and stable across executions. All values travel
// as named parameters; nothing is ever interpolated into the SQL text.
package querysql

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/nestq/nestq/internal/plan"
)

// Statement is one renderable query: SQL text plus its named parameters.
type Statement struct {
	SQL    string
	Params map[string]any
}

// Args converts the named-parameter map into driver arguments, sorted by
// name for deterministic argument order.
func (s Statement) Args() []any {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, sql.Named(name, s.Params[name]))
	}
	return args
}

// Select renders the row query: aliased columns for the root and every
// column-bearing join, the LEFT JOIN chain, filter, ordering, and paging.
func Select(p *plan.Plan) Statement {
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectList(p), ", "))
	b.WriteString(fromClause(p))
	b.WriteString(joinClauses(p))
	b.WriteString(whereClause(p))
	b.WriteString(orderByClause(p))
	b.WriteString(limitClause(p))

	return Statement{SQL: b.String(), Params: p.Params}
}

// Count renders the companion count query: distinct root primary keys over
// the same join and filter tree, with no ordering or paging.
func Count(p *plan.Plan) Statement {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT COUNT(DISTINCT %s.%s)", p.RootAlias, p.Entity.PrimaryKey().Column)
	b.WriteString(fromClause(p))
	b.WriteString(joinClauses(p))
	b.WriteString(whereClause(p))

	return Statement{SQL: b.String(), Params: p.Params}
}

// Exists renders an existence probe over the same join and filter tree.
func Exists(p *plan.Plan) Statement {
	var b strings.Builder

	b.WriteString("SELECT EXISTS(SELECT 1")
	b.WriteString(fromClause(p))
	b.WriteString(joinClauses(p))
	b.WriteString(whereClause(p))
	b.WriteString(")")

	return Statement{SQL: b.String(), Params: p.Params}
}

// ColumnKey is the SELECT-list alias for one hydrated column. The double
// underscore keeps alias/field splits unambiguous when scanning.
func ColumnKey(alias, field string) string {
	return alias + "__" + field
}

func selectList(p *plan.Plan) []string {
	var cols []string
	for i := range p.Entity.Fields {
		f := &p.Entity.Fields[i]
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", p.RootAlias, f.Column, ColumnKey(p.RootAlias, f.Name)))
	}
	for _, join := range p.Joins {
		if !join.Fetch {
			continue
		}
		for i := range join.Entity.Fields {
			f := &join.Entity.Fields[i]
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", join.Alias, f.Column, ColumnKey(join.Alias, f.Name)))
		}
	}
	return cols
}

func fromClause(p *plan.Plan) string {
	return fmt.Sprintf(" FROM %s AS %s", p.Entity.Table, p.RootAlias)
}

func joinClauses(p *plan.Plan) string {
	var b strings.Builder
	for _, join := range p.Joins {
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			join.Entity.Table, join.Alias,
			join.ParentAlias, join.Relation.OwnerColumn,
			join.Alias, join.Relation.TargetColumn)
	}
	return b.String()
}

func whereClause(p *plan.Plan) string {
	if p.Filter == "" {
		return ""
	}
	return " WHERE " + p.Filter
}

// orderByClause renders the resolved order keys. COLLATE BINARY pins text
// ordering across SQLite builds; it is a no-op for numeric columns.
func orderByClause(p *plan.Plan) string {
	keys := make([]string, 0, len(p.Orders))
	for _, o := range p.Orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		keys = append(keys, fmt.Sprintf("%s.%s COLLATE BINARY %s", o.Alias, o.Column, dir))
	}
	return " ORDER BY " + strings.Join(keys, ", ")
}

func limitClause(p *plan.Plan) string {
	if p.Take == nil && p.Skip == nil {
		return ""
	}
	// SQLite requires a LIMIT before OFFSET; -1 means unbounded.
	limit := -1
	if p.Take != nil {
		limit = *p.Take
	}
	clause := fmt.Sprintf(" LIMIT %d", limit)
	if p.Skip != nil {
		clause += fmt.Sprintf(" OFFSET %d", *p.Skip)
	}
	return clause
}
