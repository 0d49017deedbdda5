package queryspec

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nestq/nestq/schema"
)

// Document is the JSON/YAML-serializable form of one query, as accepted by
// the CLI and by callers that build specs from wire input.
type Document struct {
	Entity  string           `yaml:"entity" json:"entity"`
	Where   map[string]any   `yaml:"where,omitempty" json:"where,omitempty"`
	Include map[string]any   `yaml:"include,omitempty" json:"include,omitempty"`
	Select  map[string]any   `yaml:"select,omitempty" json:"select,omitempty"`
	OrderBy []OrderDocument  `yaml:"orderBy,omitempty" json:"orderBy,omitempty"`
	Skip    *int             `yaml:"skip,omitempty" json:"skip,omitempty"`
	Take    *int             `yaml:"take,omitempty" json:"take,omitempty"`
}

// OrderDocument is one (field, direction) ordering pair in document form.
type OrderDocument struct {
	Field     string `yaml:"field" json:"field"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// ParseDocument builds a complete Spec from document form, validating every
// tree against the schema.
func ParseDocument(sch *schema.Schema, doc Document) (Spec, error) {
	ent, ok := sch.Entity(doc.Entity)
	if !ok {
		return Spec{}, fmt.Errorf("unknown entity %q (known: %s)",
			doc.Entity, strings.Join(sch.EntityNames(), ", "))
	}

	spec := Spec{Entity: ent.Name, Skip: doc.Skip, Take: doc.Take}

	var err error
	if len(doc.Include) > 0 {
		if spec.Includes, err = ParseInclusion(sch, ent, doc.Include); err != nil {
			return Spec{}, err
		}
	}
	if len(doc.Where) > 0 {
		if spec.Predicate, err = ParsePredicate(sch, ent, doc.Where); err != nil {
			return Spec{}, err
		}
	}
	if len(doc.Select) > 0 {
		if spec.Selection, err = ParseSelection(sch, ent, doc.Select); err != nil {
			return Spec{}, err
		}
	}
	for _, o := range doc.OrderBy {
		dir, err := ParseDirection(o.Direction)
		if err != nil {
			return Spec{}, err
		}
		spec.Orders = append(spec.Orders, OrderKey{Path: normIdent(o.Field), Direction: dir})
	}
	return spec, nil
}

// ParseDirection parses an ordering direction; empty defaults to ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return "", fmt.Errorf("unknown order direction %q (want asc or desc)", s)
	}
}

// ParsePredicate builds a tagged predicate tree from the JSON-shaped form
//
//	{field: {op: value, ...}, relation: {...}, and: [...], or: [...]}
//
// A key is tagged as a relation reference iff the entity's metadata declares
// a relation of that name; everything else must be a declared field.
func ParsePredicate(sch *schema.Schema, ent *schema.Entity, input map[string]any) (Predicate, error) {
	nodes := make([]Predicate, 0, len(input))

	for _, key := range sortedKeys(input) {
		value := input[key]

		switch key {
		case "and", "or":
			children, err := parseCombinator(sch, ent, key, value)
			if err != nil {
				return nil, err
			}
			if key == "and" {
				nodes = append(nodes, And{Nodes: children})
			} else {
				nodes = append(nodes, Or{Nodes: children})
			}
			continue
		}

		if rel, ok := ent.Relation(key); ok {
			nested, ok := value.(map[string]any)
			if !ok || len(nested) == 0 {
				return nil, fmt.Errorf("relation %q in predicate requires a nested predicate object", key)
			}
			target, _ := sch.Entity(rel.Target)
			node, err := ParsePredicate(sch, target, nested)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, RelationCondition{Relation: key, Node: node})
			continue
		}

		if _, ok := ent.Field(key); !ok {
			return nil, &UnknownFieldError{
				Entity:    ent.Name,
				Field:     key,
				Fields:    ent.FieldNames(),
				Relations: ent.RelationNames(),
			}
		}
		comparisons, err := parseComparisons(key, value)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, FieldCondition{Field: key, Comparisons: comparisons})
	}

	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("empty predicate object")
	case 1:
		return nodes[0], nil
	default:
		// Sibling entries at one level are implicitly AND-ed.
		return And{Nodes: nodes}, nil
	}
}

func parseCombinator(sch *schema.Schema, ent *schema.Entity, key string, value any) ([]Predicate, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%q must be an array of predicate objects", key)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%q must not be empty", key)
	}
	children := make([]Predicate, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%q element %d must be a predicate object", key, i)
		}
		child, err := ParsePredicate(sch, ent, obj)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// parseComparisons parses the value side of a field entry. A scalar value is
// shorthand for {eq: value}; an object maps operator tokens to operands.
func parseComparisons(field string, value any) ([]Comparison, error) {
	ops, ok := value.(map[string]any)
	if !ok {
		return []Comparison{{Op: OpEq, Value: value}}, nil
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("field %q has an empty comparison object", field)
	}

	comparisons := make([]Comparison, 0, len(ops))
	for _, tok := range sortedKeys(ops) {
		operand := ops[tok]
		if tok == opOr {
			groups, err := parseOrGroups(field, operand)
			if err != nil {
				return nil, err
			}
			comparisons = append(comparisons, Comparison{Or: groups})
			continue
		}
		if !KnownOperator(tok) {
			return nil, &UnsupportedOperatorError{Operator: tok, Field: field}
		}
		comparisons = append(comparisons, Comparison{Op: Operator(tok), Value: operand})
	}
	return comparisons, nil
}

// parseOrGroups parses an intra-field OR: a list of comparison objects
// evaluated against the same field.
func parseOrGroups(field string, value any) ([]ComparisonGroup, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q: \"or\" must be an array of comparison objects", field)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("field %q: \"or\" must not be empty", field)
	}
	groups := make([]ComparisonGroup, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: \"or\" element %d must be a comparison object", field, i)
		}
		group, err := parseComparisons(field, obj)
		if err != nil {
			return nil, err
		}
		groups = append(groups, ComparisonGroup(group))
	}
	return groups, nil
}

// ParseInclusion builds an inclusion tree from the JSON-shaped form
//
//	{relation: true | {as?: string, include?: {...}}, ...}
func ParseInclusion(sch *schema.Schema, ent *schema.Entity, input map[string]any) ([]Inclusion, error) {
	includes := make([]Inclusion, 0, len(input))

	for _, key := range sortedKeys(input) {
		rel, ok := ent.Relation(key)
		if !ok {
			return nil, &RelationNotFoundError{
				Entity:    ent.Name,
				Relation:  key,
				Available: ent.RelationNames(),
			}
		}

		inc := Inclusion{Relation: key}
		switch value := input[key].(type) {
		case bool:
			if !value {
				continue // {relation: false} is an explicit opt-out
			}
		case map[string]any:
			if as, ok := value["as"]; ok {
				s, ok := as.(string)
				if !ok || s == "" {
					return nil, fmt.Errorf("inclusion %q: \"as\" must be a non-empty string", key)
				}
				inc.Alias = normIdent(s)
			}
			if nested, ok := value["include"]; ok {
				obj, ok := nested.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("inclusion %q: \"include\" must be an object", key)
				}
				target, _ := sch.Entity(rel.Target)
				children, err := ParseInclusion(sch, target, obj)
				if err != nil {
					return nil, err
				}
				inc.Children = children
			}
			for k := range value {
				if k != "as" && k != "include" {
					return nil, fmt.Errorf("inclusion %q: unknown option %q", key, k)
				}
			}
		default:
			return nil, fmt.Errorf("inclusion %q must be true or an options object", key)
		}
		includes = append(includes, inc)
	}
	return includes, nil
}

// ParseSelection builds a selection tree from the JSON-shaped form
//
//	{column: true | {as: string}, relation: {nested selection}, ...}
//
// Relation keys are tagged against metadata here; whether the relation was
// actually included is checked later by the projection planner.
func ParseSelection(sch *schema.Schema, ent *schema.Entity, input map[string]any) (Selection, error) {
	var sel Selection

	for _, key := range sortedKeys(input) {
		value := input[key]

		if rel, ok := ent.Relation(key); ok {
			target, _ := sch.Entity(rel.Target)
			switch nested := value.(type) {
			case bool:
				if nested {
					// {relation: true} selects the whole relation.
					sel.Relations = append(sel.Relations, RelationSelection{Relation: key})
				}
			case map[string]any:
				inner, err := ParseSelection(sch, target, nested)
				if err != nil {
					return Selection{}, err
				}
				sel.Relations = append(sel.Relations, RelationSelection{Relation: key, Nested: inner})
			default:
				return Selection{}, fmt.Errorf("selection for relation %q must be true or an object", key)
			}
			continue
		}

		if _, ok := ent.Field(key); !ok {
			return Selection{}, &UnknownFieldError{
				Entity:    ent.Name,
				Field:     key,
				Fields:    ent.FieldNames(),
				Relations: ent.RelationNames(),
			}
		}
		switch marker := value.(type) {
		case bool:
			if marker {
				sel.Columns = append(sel.Columns, ColumnSelection{Field: key})
			}
		case map[string]any:
			as, ok := marker["as"].(string)
			if !ok || as == "" || len(marker) != 1 {
				return Selection{}, fmt.Errorf("selection for column %q must be true or {as: name}", key)
			}
			sel.Columns = append(sel.Columns, ColumnSelection{Field: key, Alias: normIdent(as)})
		default:
			return Selection{}, fmt.Errorf("selection for column %q must be true or {as: name}", key)
		}
	}
	return sel, nil
}

// sortedKeys normalizes the map's keys to NFC in place and returns them in
// sorted order. Sorting makes compilation output (parameter numbering, join
// order) deterministic regardless of map iteration order.
//
// The original keys are collected before any rewrite: inserting into a map
// while ranging over it leaves it unspecified whether the new key is
// visited, which could yield a key twice. Keys that normalize to the same
// identifier collapse into one entry.
func sortedKeys(input map[string]any) []string {
	originals := make([]string, 0, len(input))
	for k := range input {
		originals = append(originals, k)
	}

	keys := make([]string, 0, len(originals))
	seen := make(map[string]struct{}, len(originals))
	for _, k := range originals {
		n := normIdent(k)
		if n != k {
			input[n] = input[k]
			delete(input, k)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		keys = append(keys, n)
	}
	sort.Strings(keys)
	return keys
}

// normIdent normalizes an identifier to NFC so that visually identical
// field names compare equal regardless of the source encoding.
func normIdent(s string) string {
	return norm.NFC.String(s)
}
