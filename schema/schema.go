// Package schema holds the static entity, field, and relation declarations
// that query compilation resolves against.
//
// A Schema is built once from explicit declarations (Go literals, YAML, or
// CUE) and passed by value into every query session. There is no ambient
// registry: two sessions built against different Schema values never observe
// each other's metadata.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationKind describes how a relation joins and how its value hydrates.
type RelationKind string

const (
	// HasMany joins owner.pk = target.fk and hydrates to a slice.
	HasMany RelationKind = "hasMany"

	// HasOne joins owner.pk = target.fk and hydrates to a single object.
	HasOne RelationKind = "hasOne"

	// BelongsTo joins owner.fk = target.pk and hydrates to a single object.
	BelongsTo RelationKind = "belongsTo"
)

// IsToMany reports whether the relation hydrates to a slice.
func (k RelationKind) IsToMany() bool { return k == HasMany }

// Field declares one scalar column of an entity.
type Field struct {
	// Name is the caller-facing property name.
	Name string `yaml:"name" json:"name"`

	// Column is the SQL column name. Defaults to Name.
	Column string `yaml:"column,omitempty" json:"column,omitempty"`

	// PrimaryKey marks the entity's primary key. Exactly one field per
	// entity must set it; it is the stable ordering tiebreak and the
	// hydration grouping key.
	PrimaryKey bool `yaml:"primaryKey,omitempty" json:"primaryKey,omitempty"`
}

// Relation declares a named edge from one entity to another.
//
// The join condition is always owner.OwnerColumn = target.TargetColumn.
// Defaults when omitted: HasMany/HasOne use the owner primary key against
// "<owner>_id" on the target; BelongsTo uses "<target>_id" on the owner
// against the target primary key.
type Relation struct {
	Name   string       `yaml:"name" json:"name"`
	Target string       `yaml:"target" json:"target"`
	Kind   RelationKind `yaml:"kind" json:"kind"`

	// OwnerColumn is the join column on the owning entity.
	OwnerColumn string `yaml:"ownerColumn,omitempty" json:"ownerColumn,omitempty"`

	// TargetColumn is the join column on the target entity.
	TargetColumn string `yaml:"targetColumn,omitempty" json:"targetColumn,omitempty"`
}

// Entity declares one table-backed entity.
type Entity struct {
	Name      string     `yaml:"name" json:"name"`
	Table     string     `yaml:"table,omitempty" json:"table,omitempty"`
	Fields    []Field    `yaml:"fields" json:"fields"`
	Relations []Relation `yaml:"relations,omitempty" json:"relations,omitempty"`

	fieldsByName    map[string]int
	relationsByName map[string]int
	primaryKey      int
}

// Schema is an immutable set of entity declarations.
type Schema struct {
	entities map[string]*Entity
	names    []string
}

// New validates the given entity declarations, applies defaults, and builds
// a Schema. The input slices are copied; later mutation of the arguments
// does not affect the returned Schema.
func New(entities ...Entity) (*Schema, error) {
	s := &Schema{entities: make(map[string]*Entity, len(entities))}

	for i := range entities {
		ent := entities[i] // copy
		if ent.Name == "" {
			return nil, fmt.Errorf("entity %d: name is required", i)
		}
		if _, dup := s.entities[ent.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", ent.Name)
		}
		if ent.Table == "" {
			ent.Table = ent.Name
		}
		if err := indexEntity(&ent); err != nil {
			return nil, fmt.Errorf("entity %q: %w", ent.Name, err)
		}
		s.entities[ent.Name] = &ent
		s.names = append(s.names, ent.Name)
	}
	sort.Strings(s.names)

	// Relation targets and join columns can only be checked once all
	// entities are registered.
	for _, name := range s.names {
		if err := s.resolveRelations(s.entities[name]); err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
	}
	return s, nil
}

// MustNew is New for statically-declared schemas that cannot fail.
func MustNew(entities ...Entity) *Schema {
	s, err := New(entities...)
	if err != nil {
		panic(err)
	}
	return s
}

func indexEntity(ent *Entity) error {
	if len(ent.Fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	ent.fieldsByName = make(map[string]int, len(ent.Fields))
	ent.relationsByName = make(map[string]int, len(ent.Relations))
	ent.primaryKey = -1

	for i := range ent.Fields {
		f := &ent.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := ent.fieldsByName[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Column == "" {
			f.Column = f.Name
		}
		if f.PrimaryKey {
			if ent.primaryKey >= 0 {
				return fmt.Errorf("multiple primary keys (%q and %q)", ent.Fields[ent.primaryKey].Name, f.Name)
			}
			ent.primaryKey = i
		}
		ent.fieldsByName[f.Name] = i
	}
	if ent.primaryKey < 0 {
		return fmt.Errorf("no primary key field")
	}

	for i := range ent.Relations {
		r := &ent.Relations[i]
		if r.Name == "" {
			return fmt.Errorf("relation %d: name is required", i)
		}
		if _, dup := ent.relationsByName[r.Name]; dup {
			return fmt.Errorf("duplicate relation %q", r.Name)
		}
		if _, clash := ent.fieldsByName[r.Name]; clash {
			return fmt.Errorf("relation %q collides with a field of the same name", r.Name)
		}
		// Join aliases are relation path segments joined with "_"; an
		// underscore inside a segment would let two distinct paths
		// flatten to the same alias.
		if strings.Contains(r.Name, "_") {
			return fmt.Errorf("relation %q: name must not contain %q", r.Name, "_")
		}
		switch r.Kind {
		case HasMany, HasOne, BelongsTo:
		case "":
			return fmt.Errorf("relation %q: kind is required", r.Name)
		default:
			return fmt.Errorf("relation %q: unknown kind %q", r.Name, r.Kind)
		}
		ent.relationsByName[r.Name] = i
	}
	return nil
}

func (s *Schema) resolveRelations(ent *Entity) error {
	for i := range ent.Relations {
		r := &ent.Relations[i]
		target, ok := s.entities[r.Target]
		if !ok {
			return fmt.Errorf("relation %q: target entity %q not declared", r.Name, r.Target)
		}
		switch r.Kind {
		case HasMany, HasOne:
			if r.OwnerColumn == "" {
				r.OwnerColumn = ent.PrimaryKey().Column
			}
			if r.TargetColumn == "" {
				r.TargetColumn = ent.Name + "_id"
			}
		case BelongsTo:
			if r.OwnerColumn == "" {
				r.OwnerColumn = r.Target + "_id"
			}
			if r.TargetColumn == "" {
				r.TargetColumn = target.PrimaryKey().Column
			}
		}
	}
	return nil
}

// Entity looks up an entity by name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	ent, ok := s.entities[name]
	return ent, ok
}

// EntityNames returns all entity names in sorted order.
func (s *Schema) EntityNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Field looks up a field by property name.
func (e *Entity) Field(name string) (*Field, bool) {
	i, ok := e.fieldsByName[name]
	if !ok {
		return nil, false
	}
	return &e.Fields[i], true
}

// Relation looks up a relation by name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	i, ok := e.relationsByName[name]
	if !ok {
		return nil, false
	}
	return &e.Relations[i], true
}

// PrimaryKey returns the entity's primary key field.
func (e *Entity) PrimaryKey() *Field {
	return &e.Fields[e.primaryKey]
}

// FieldNames returns all field property names in sorted order.
func (e *Entity) FieldNames() []string {
	out := make([]string, 0, len(e.Fields))
	for i := range e.Fields {
		out = append(out, e.Fields[i].Name)
	}
	sort.Strings(out)
	return out
}

// RelationNames returns all relation names in sorted order. Used in
// diagnostics when a relation lookup fails.
func (e *Entity) RelationNames() []string {
	out := make([]string, 0, len(e.Relations))
	for i := range e.Relations {
		out = append(out, e.Relations[i].Name)
	}
	sort.Strings(out)
	return out
}

// IsRelation reports whether name refers to a relation of the entity.
func (e *Entity) IsRelation(name string) bool {
	_, ok := e.relationsByName[name]
	return ok
}

// String renders a compact summary, e.g. "user(users) fields=4 relations=posts,profile".
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s) fields=%d relations=%s",
		e.Name, e.Table, len(e.Fields), strings.Join(e.RelationNames(), ","))
}
