package engine

import (
	"fmt"

	"github.com/nestq/nestq/internal/plan"
	"github.com/nestq/nestq/internal/querysql"
	"github.com/nestq/nestq/schema"
)

// Hydrate folds flat joined rows into one nested row per distinct root
// entity. Rows are grouped by primary key at every level, so a root joined
// against three child rows collapses back into a single entity carrying a
// three-element slice.
//
// Grouping preserves first-appearance order, which follows the statement's
// ORDER BY. To-many relations hydrate to an empty slice when no child row
// matched; to-one relations hydrate to nil.
func Hydrate(raw []map[string]any, p *plan.Plan) []map[string]any {
	pk := p.Entity.PrimaryKey()
	rootKey := querysql.ColumnKey(p.RootAlias, pk.Name)

	seen := make(map[string]*entityState)
	var order []*entityState

	for _, record := range raw {
		id := record[rootKey]
		if id == nil {
			continue
		}
		key := fmt.Sprint(id)

		state, ok := seen[key]
		if !ok {
			state = newEntityState(record, p.RootAlias, p.Entity)
			seen[key] = state
			order = append(order, state)
		}
		state.absorb(record, p.Projection.Children)
	}

	out := make([]map[string]any, len(order))
	for i, state := range order {
		out[i] = state.finalize()
	}
	return out
}

// entityState accumulates one entity's scalar values and its child groups
// while rows stream past.
type entityState struct {
	data     map[string]any
	children map[string]*childGroup
}

// childGroup collects the distinct child entities seen under one relation.
type childGroup struct {
	node  *plan.RelationNode
	seen  map[string]*entityState
	order []*entityState
}

func newEntityState(record map[string]any, alias string, entity *schema.Entity) *entityState {
	data := make(map[string]any, len(entity.Fields))
	for i := range entity.Fields {
		name := entity.Fields[i].Name
		data[name] = record[querysql.ColumnKey(alias, name)]
	}
	return &entityState{
		data:     data,
		children: make(map[string]*childGroup),
	}
}

// absorb routes one raw record into this entity's child groups.
func (s *entityState) absorb(record map[string]any, nodes map[string]*plan.RelationNode) {
	for relation, node := range nodes {
		group, ok := s.children[relation]
		if !ok {
			// Registered even when this record carries no child row, so
			// empty to-many relations still finalize as empty slices.
			group = &childGroup{node: node, seen: make(map[string]*entityState)}
			s.children[relation] = group
		}

		pkName := node.Entity.PrimaryKey().Name
		id := record[querysql.ColumnKey(node.Alias, pkName)]
		if id == nil {
			continue
		}
		key := fmt.Sprint(id)

		child, ok := group.seen[key]
		if !ok {
			child = newEntityState(record, node.Alias, node.Entity)
			group.seen[key] = child
			group.order = append(group.order, child)
		}
		child.absorb(record, node.Children)
	}
}

func (s *entityState) finalize() map[string]any {
	out := s.data
	for relation, group := range s.children {
		if group.node.Kind.IsToMany() {
			many := make([]map[string]any, len(group.order))
			for i, child := range group.order {
				many[i] = child.finalize()
			}
			out[relation] = many
			continue
		}

		if len(group.order) == 0 {
			out[relation] = nil
		} else {
			out[relation] = group.order[0].finalize()
		}
	}
	return out
}
