package queryspec

// Operator is a comparison-operator token from the query DSL.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpBetween    Operator = "between"
	OpLike       Operator = "like"
	OpILike      Operator = "iLike"
	OpNotLike    Operator = "notLike"
	OpNotILike   Operator = "notILike"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpMatches    Operator = "matches"
	OpIsNull     Operator = "isNull"
	OpIsNotNull  Operator = "isNotNull"
)

// opOr is the intra-field OR combinator. It is not an Operator: it combines
// comparison groups against one field rather than rendering a fragment.
const opOr = "or"

var operators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpIn: {}, OpNotIn: {}, OpBetween: {}, OpLike: {}, OpILike: {},
	OpNotLike: {}, OpNotILike: {}, OpContains: {}, OpStartsWith: {},
	OpEndsWith: {}, OpMatches: {}, OpIsNull: {}, OpIsNotNull: {},
}

// KnownOperator reports whether tok is a recognized comparison operator.
func KnownOperator(tok string) bool {
	_, ok := operators[Operator(tok)]
	return ok
}

// Predicate is one node of a compiled-input predicate tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern enables exhaustive type switches in the plan
// compiler.
type Predicate interface {
	predicateNode()
}

// And combines child predicates; all must hold.
type And struct {
	Nodes []Predicate
}

func (And) predicateNode() {}

// Or combines child predicates; at least one must hold.
type Or struct {
	Nodes []Predicate
}

func (Or) predicateNode() {}

// FieldCondition constrains one scalar field of the current entity with one
// or more comparisons (implicitly AND-ed).
type FieldCondition struct {
	Field       string
	Comparisons []Comparison
}

func (FieldCondition) predicateNode() {}

// RelationCondition applies a nested predicate to a related entity. The
// compiler resolves the relation through the alias registry (joining it on
// demand) and recurses with the related entity's alias and path.
type RelationCondition struct {
	Relation string
	Node     Predicate
}

func (RelationCondition) predicateNode() {}

// Comparison is one operator application against a field.
//
// Exactly one of the two forms is populated: a plain comparison carries Op
// and Value; an intra-field OR carries Or, a list of comparison groups
// evaluated against the same field and OR-joined.
type Comparison struct {
	Op    Operator
	Value any

	Or []ComparisonGroup
}

// ComparisonGroup is one alternative of an intra-field OR; its comparisons
// are AND-ed together.
type ComparisonGroup []Comparison

// IsOr reports whether the comparison is an intra-field OR combinator.
func (c Comparison) IsOr() bool { return len(c.Or) > 0 }

// Inclusion requests that a relation be joined and its columns fetched.
type Inclusion struct {
	Relation string

	// Alias is the caller's output alias override ("as"). Empty means the
	// relation name is used, both for the SQL alias synthesis and the
	// materialized output key.
	Alias string

	Children []Inclusion
}

// Selection is a node of the selection tree: which columns to emit and,
// per already-included relation, the nested selection to apply.
//
// An empty Selection means "pass everything through" - that default is
// load-bearing, not a degenerate case.
type Selection struct {
	Columns   []ColumnSelection
	Relations []RelationSelection
}

// IsZero reports whether the selection selects nothing explicitly.
func (s Selection) IsZero() bool {
	return len(s.Columns) == 0 && len(s.Relations) == 0
}

// ColumnSelection emits one column, optionally renamed.
type ColumnSelection struct {
	Field string
	Alias string // output name override; empty keeps Field
}

// RelationSelection applies a nested selection to an included relation.
type RelationSelection struct {
	Relation string
	Nested   Selection
}

// Direction orders a sort key.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderKey is one (path, direction) sort pair, applied in call order. Path
// may be a bare root field or a dotted relation path ending in a field;
// dotted paths resolve through the alias registry with the same auto-join
// policy as predicates.
type OrderKey struct {
	Path      string
	Direction Direction
}

// Spec is the complete, immutable description of one logical query.
type Spec struct {
	Entity    string
	Predicate Predicate // nil means unfiltered
	Includes  []Inclusion
	Selection Selection
	Orders    []OrderKey
	Skip      *int
	Take      *int
}
