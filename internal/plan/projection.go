package plan

import (
	"fmt"

	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/schema"
)

// ColumnSel is one planned column emission: the source field and the output
// name it materializes under.
type ColumnSel struct {
	Field   string
	Column  string
	OutName string
}

// RelationNode is one relation of the projection plan, keyed into the tree
// by relation name and carrying its resolved alias and path.
//
// An empty Columns map means "pass all of this relation's columns through" -
// the node was included but never narrowed by a selection.
type RelationNode struct {
	Path     string
	Relation string
	Alias    string
	OutKey   string
	Kind     schema.RelationKind
	Entity   *schema.Entity

	Columns  map[string]ColumnSel
	Children map[string]*RelationNode
}

// PassThrough reports whether the node emits all columns unchanged.
func (n *RelationNode) PassThrough() bool { return len(n.Columns) == 0 }

// Projection is the compiled projection plan: the flat root-column map plus
// the relation tree. An empty RootColumns map passes the root row through.
type Projection struct {
	RootColumns map[string]ColumnSel
	Children    map[string]*RelationNode
}

// Projection returns the projection plan accumulated so far.
func (c *Context) Projection() *Projection { return c.projection }

// PlanInclusion joins every relation in the inclusion tree (column-bearing)
// and creates its projection node. Re-including an already-joined path is a
// no-op apart from upgrading a filter-only join to column-bearing.
func (c *Context) PlanInclusion(includes []queryspec.Inclusion) error {
	return c.planInclusion(includes, "", c.projection.Children)
}

func (c *Context) planInclusion(includes []queryspec.Inclusion, parentPath string, nodes map[string]*RelationNode) error {
	for _, inc := range includes {
		path := inc.Relation
		if parentPath != "" {
			path = parentPath + "." + inc.Relation
		}

		entry, err := c.Resolve(path, true, inc.Alias)
		if err != nil {
			return err
		}
		join := c.joinFor(path)

		node, ok := nodes[inc.Relation]
		if !ok {
			node = &RelationNode{
				Path:     path,
				Relation: inc.Relation,
				Alias:    entry.Alias,
				OutKey:   join.OutKey,
				Kind:     join.Relation.Kind,
				Entity:   join.Entity,
				Columns:  map[string]ColumnSel{},
				Children: map[string]*RelationNode{},
			}
			nodes[inc.Relation] = node
		} else if join.OutKey != node.OutKey {
			node.OutKey = join.OutKey
		}

		if err := c.planInclusion(inc.Children, path, node.Children); err != nil {
			return err
		}
	}
	return nil
}

// PlanSelection folds a selection tree into the projection plan. Root
// columns go into the flat root-column map (last write wins); relation
// selections require the relation to have been included already and
// accumulate into that relation's node, so repeated calls merge rather than
// replace.
func (c *Context) PlanSelection(sel queryspec.Selection) error {
	for _, col := range sel.Columns {
		planned, err := plannedColumn(c.root, col)
		if err != nil {
			return err
		}
		c.projection.RootColumns[col.Field] = planned
	}
	for _, rs := range sel.Relations {
		if err := c.planRelationSelection(rs, "", c.projection.Children); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) planRelationSelection(rs queryspec.RelationSelection, parentPath string, nodes map[string]*RelationNode) error {
	path := rs.Relation
	if parentPath != "" {
		path = parentPath + "." + rs.Relation
	}

	node, ok := nodes[rs.Relation]
	if !ok {
		return &ProjectionRelationNotIncludedError{Path: path}
	}

	for _, col := range rs.Nested.Columns {
		planned, err := plannedColumn(node.Entity, col)
		if err != nil {
			return err
		}
		node.Columns[col.Field] = planned
	}
	for _, nested := range rs.Nested.Relations {
		if err := c.planRelationSelection(nested, path, node.Children); err != nil {
			return err
		}
	}
	return nil
}

func plannedColumn(ent *schema.Entity, col queryspec.ColumnSelection) (ColumnSel, error) {
	field, ok := ent.Field(col.Field)
	if !ok {
		return ColumnSel{}, &queryspec.UnknownFieldError{
			Entity:    ent.Name,
			Field:     col.Field,
			Fields:    ent.FieldNames(),
			Relations: ent.RelationNames(),
		}
	}
	out := col.Alias
	if out == "" {
		out = col.Field
	}
	if out == "" {
		return ColumnSel{}, fmt.Errorf("column selection with empty field name")
	}
	return ColumnSel{Field: col.Field, Column: field.Column, OutName: out}, nil
}
