package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestq/nestq/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Entity{
			Name:  "user",
			Table: "users",
			Fields: []schema.Field{
				{Name: "id", PrimaryKey: true},
				{Name: "name"},
				{Name: "age"},
			},
			Relations: []schema.Relation{
				{Name: "posts", Target: "post", Kind: schema.HasMany},
			},
		},
		schema.Entity{
			Name:  "post",
			Table: "posts",
			Fields: []schema.Field{
				{Name: "id", PrimaryKey: true},
				{Name: "title"},
				{Name: "published"},
			},
			Relations: []schema.Relation{
				{Name: "comments", Target: "comment", Kind: schema.HasMany},
			},
		},
		schema.Entity{
			Name:  "comment",
			Table: "comments",
			Fields: []schema.Field{
				{Name: "id", PrimaryKey: true},
				{Name: "body"},
			},
		},
	)
	require.NoError(t, err)
	return s
}

func userEntity(t *testing.T, s *schema.Schema) *schema.Entity {
	t.Helper()
	ent, ok := s.Entity("user")
	require.True(t, ok)
	return ent
}

func TestParsePredicate_NonNFCKeyParsesOnce(t *testing.T) {
	s, err := schema.New(schema.Entity{
		Name: "place",
		Fields: []schema.Field{
			{Name: "id", PrimaryKey: true},
			{Name: "caf\u00e9"}, // NFC
		},
	})
	require.NoError(t, err)
	ent, ok := s.Entity("place")
	require.True(t, ok)

	// NFD spelling of the same field; normalization must not visit the
	// rewritten key a second time.
	node, err := ParsePredicate(s, ent, map[string]any{
		"cafe\u0301": map[string]any{"eq": "Less"},
	})
	require.NoError(t, err)

	fc, ok := node.(FieldCondition)
	require.True(t, ok, "expected FieldCondition, got %T", node)
	assert.Equal(t, "caf\u00e9", fc.Field)
	require.Len(t, fc.Comparisons, 1)
}

func TestParsePredicate_BothEncodingsCollapseToOneNode(t *testing.T) {
	s, err := schema.New(schema.Entity{
		Name: "place",
		Fields: []schema.Field{
			{Name: "id", PrimaryKey: true},
			{Name: "caf\u00e9"},
		},
	})
	require.NoError(t, err)
	ent, ok := s.Entity("place")
	require.True(t, ok)

	node, err := ParsePredicate(s, ent, map[string]any{
		"caf\u00e9": map[string]any{"eq": "Less"},
		"cafe\u0301": map[string]any{"eq": "Less"},
	})
	require.NoError(t, err)

	_, isField := node.(FieldCondition)
	assert.True(t, isField, "duplicate-encoded keys must collapse to a single node, got %T", node)
}

func TestParsePredicate_FieldCondition(t *testing.T) {
	s := testSchema(t)

	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"name": map[string]any{"eq": "John"},
	})
	require.NoError(t, err)

	fc, ok := node.(FieldCondition)
	require.True(t, ok, "expected FieldCondition, got %T", node)
	assert.Equal(t, "name", fc.Field)
	require.Len(t, fc.Comparisons, 1)
	assert.Equal(t, OpEq, fc.Comparisons[0].Op)
	assert.Equal(t, "John", fc.Comparisons[0].Value)
}

func TestParsePredicate_ScalarShorthand(t *testing.T) {
	s := testSchema(t)

	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{"name": "John"})
	require.NoError(t, err)

	fc := node.(FieldCondition)
	require.Len(t, fc.Comparisons, 1)
	assert.Equal(t, OpEq, fc.Comparisons[0].Op)
}

func TestParsePredicate_RelationTagged(t *testing.T) {
	s := testSchema(t)

	// "posts" is declared as a relation, so it must parse to a
	// RelationCondition even though its value is shaped like any object.
	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"posts": map[string]any{"published": map[string]any{"eq": true}},
	})
	require.NoError(t, err)

	rc, ok := node.(RelationCondition)
	require.True(t, ok, "expected RelationCondition, got %T", node)
	assert.Equal(t, "posts", rc.Relation)

	fc, ok := rc.Node.(FieldCondition)
	require.True(t, ok)
	assert.Equal(t, "published", fc.Field)
}

func TestParsePredicate_Combinators(t *testing.T) {
	s := testSchema(t)

	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"and": []any{
			map[string]any{"age": map[string]any{"gte": 18}},
			map[string]any{"age": map[string]any{"lt": 65}},
		},
	})
	require.NoError(t, err)

	and, ok := node.(And)
	require.True(t, ok)
	require.Len(t, and.Nodes, 2)
}

func TestParsePredicate_SiblingsImplicitlyAnded(t *testing.T) {
	s := testSchema(t)

	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"age":  map[string]any{"gte": 18},
		"name": map[string]any{"like": "J%"},
	})
	require.NoError(t, err)

	and, ok := node.(And)
	require.True(t, ok, "expected And, got %T", node)
	require.Len(t, and.Nodes, 2)

	// Keys are sorted, so age precedes name deterministically.
	assert.Equal(t, "age", and.Nodes[0].(FieldCondition).Field)
	assert.Equal(t, "name", and.Nodes[1].(FieldCondition).Field)
}

func TestParsePredicate_IntraFieldOr(t *testing.T) {
	s := testSchema(t)

	node, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"age": map[string]any{"or": []any{
			map[string]any{"lt": 18},
			map[string]any{"gte": 65},
		}},
	})
	require.NoError(t, err)

	fc := node.(FieldCondition)
	require.Len(t, fc.Comparisons, 1)
	require.True(t, fc.Comparisons[0].IsOr())
	require.Len(t, fc.Comparisons[0].Or, 2)
	assert.Equal(t, OpLt, fc.Comparisons[0].Or[0][0].Op)
	assert.Equal(t, OpGte, fc.Comparisons[0].Or[1][0].Op)
}

func TestParsePredicate_UnsupportedOperator(t *testing.T) {
	s := testSchema(t)

	_, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"name": map[string]any{"foo": 1},
	})
	require.Error(t, err)
	assert.True(t, IsUnsupportedOperator(err))
	assert.Contains(t, err.Error(), `"foo"`)
}

func TestParsePredicate_UnknownField(t *testing.T) {
	s := testSchema(t)

	_, err := ParsePredicate(s, userEntity(t, s), map[string]any{
		"nick": map[string]any{"eq": "jj"},
	})
	require.Error(t, err)
	assert.True(t, IsUnknownField(err))
	// Diagnostics list what was available.
	assert.Contains(t, err.Error(), "age")
	assert.Contains(t, err.Error(), "posts")
}

func TestParsePredicate_EmptyObject(t *testing.T) {
	s := testSchema(t)

	_, err := ParsePredicate(s, userEntity(t, s), map[string]any{})
	require.Error(t, err)
}

func TestParseInclusion_LeafAndNested(t *testing.T) {
	s := testSchema(t)

	includes, err := ParseInclusion(s, userEntity(t, s), map[string]any{
		"posts": map[string]any{
			"as":      "articles",
			"include": map[string]any{"comments": true},
		},
	})
	require.NoError(t, err)

	require.Len(t, includes, 1)
	assert.Equal(t, "posts", includes[0].Relation)
	assert.Equal(t, "articles", includes[0].Alias)
	require.Len(t, includes[0].Children, 1)
	assert.Equal(t, "comments", includes[0].Children[0].Relation)
}

func TestParseInclusion_UnknownRelation(t *testing.T) {
	s := testSchema(t)

	_, err := ParseInclusion(s, userEntity(t, s), map[string]any{"followers": true})
	require.Error(t, err)
	assert.True(t, IsRelationNotFound(err))
	assert.Contains(t, err.Error(), "posts")
}

func TestParseInclusion_FalseOptsOut(t *testing.T) {
	s := testSchema(t)

	includes, err := ParseInclusion(s, userEntity(t, s), map[string]any{"posts": false})
	require.NoError(t, err)
	assert.Empty(t, includes)
}

func TestParseInclusion_UnknownOption(t *testing.T) {
	s := testSchema(t)

	_, err := ParseInclusion(s, userEntity(t, s), map[string]any{
		"posts": map[string]any{"where": map[string]any{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown option "where"`)
}

func TestParseSelection_ColumnsAndRelations(t *testing.T) {
	s := testSchema(t)

	sel, err := ParseSelection(s, userEntity(t, s), map[string]any{
		"name": true,
		"posts": map[string]any{
			"title": map[string]any{"as": "postTitle"},
		},
	})
	require.NoError(t, err)

	require.Len(t, sel.Columns, 1)
	assert.Equal(t, "name", sel.Columns[0].Field)

	require.Len(t, sel.Relations, 1)
	assert.Equal(t, "posts", sel.Relations[0].Relation)
	require.Len(t, sel.Relations[0].Nested.Columns, 1)
	assert.Equal(t, "title", sel.Relations[0].Nested.Columns[0].Field)
	assert.Equal(t, "postTitle", sel.Relations[0].Nested.Columns[0].Alias)
}

func TestParseSelection_BadRenameShape(t *testing.T) {
	s := testSchema(t)

	_, err := ParseSelection(s, userEntity(t, s), map[string]any{
		"name": map[string]any{"as": "n", "extra": true},
	})
	require.Error(t, err)
}

func TestParseDocument_Complete(t *testing.T) {
	s := testSchema(t)

	skip, take := 10, 5
	spec, err := ParseDocument(s, Document{
		Entity:  "user",
		Include: map[string]any{"posts": true},
		Where:   map[string]any{"age": map[string]any{"gte": 18}},
		Select:  map[string]any{"name": true},
		OrderBy: []OrderDocument{{Field: "name", Direction: "desc"}},
		Skip:    &skip,
		Take:    &take,
	})
	require.NoError(t, err)

	assert.Equal(t, "user", spec.Entity)
	require.Len(t, spec.Includes, 1)
	require.NotNil(t, spec.Predicate)
	require.Len(t, spec.Orders, 1)
	assert.Equal(t, Desc, spec.Orders[0].Direction)
	assert.Equal(t, 10, *spec.Skip)
	assert.Equal(t, 5, *spec.Take)
}

func TestParseDocument_UnknownEntity(t *testing.T) {
	s := testSchema(t)

	_, err := ParseDocument(s, Document{Entity: "account"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity")
	assert.Contains(t, err.Error(), "user")
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Asc, dir)

	dir, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, dir)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
}
