package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestq/nestq/internal/queryspec"
)

// parsePred is a helper that goes through the real parser so the compiled
// trees are exactly what callers produce.
func parsePred(t *testing.T, c *Context, input map[string]any) queryspec.Predicate {
	t.Helper()
	node, err := queryspec.ParsePredicate(c.schema, c.root, input)
	require.NoError(t, err)
	return node
}

func newAliasedContext(t *testing.T, entity, alias string) *Context {
	t.Helper()
	c, err := NewContext(blogSchema(t), entity, alias)
	require.NoError(t, err)
	return c
}

func TestCompilePredicate_SimpleEq(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"eq": "John"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "u.name = :name_0", text)
	assert.Equal(t, map[string]any{"name_0": "John"}, params)
}

func TestCompilePredicate_AndCombinator(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"and": []any{
			map[string]any{"age": map[string]any{"gte": 18}},
			map[string]any{"age": map[string]any{"lt": 65}},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, "(u.age >= :age_0 AND u.age < :age_1)", text)
	assert.Equal(t, map[string]any{"age_0": 18, "age_1": 65}, params)
}

func TestCompilePredicate_OrCombinator(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, _, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"or": []any{
			map[string]any{"name": map[string]any{"eq": "John"}},
			map[string]any{"name": map[string]any{"eq": "Jane"}},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, "(u.name = :name_0 OR u.name = :name_1)", text)
}

func TestCompilePredicate_ParamNamesUniqueAcrossNesting(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	// The same field filtered at two nesting levels must not collide.
	_, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"and": []any{
			map[string]any{"name": map[string]any{"like": "J%"}},
			map[string]any{"or": []any{
				map[string]any{"name": map[string]any{"eq": "John"}},
				map[string]any{"name": map[string]any{"eq": "Jane"}},
			}},
		},
	}))
	require.NoError(t, err)
	assert.Len(t, params, 3)
	assert.Contains(t, params, "name_0")
	assert.Contains(t, params, "name_1")
	assert.Contains(t, params, "name_2")
}

func TestCompilePredicate_Between(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"age": map[string]any{"between": []any{18, 65}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "u.age BETWEEN :age_0_start AND :age_0_end", text)
	assert.Equal(t, map[string]any{"age_0_start": 18, "age_0_end": 65}, params)
}

func TestCompilePredicate_BetweenBadOperand(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	_, _, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"age": map[string]any{"between": []any{18}},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two-element range")
}

func TestCompilePredicate_InExpandsParams(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"in": []any{"John", "Jane"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "u.name IN (:name_0_0, :name_0_1)", text)
	assert.Equal(t, map[string]any{"name_0_0": "John", "name_0_1": "Jane"}, params)
}

func TestCompilePredicate_InEmptyList(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"in": []any{}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", text)
	assert.Empty(t, params)

	c = newAliasedContext(t, "user", "u")
	text, _, err = c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"notIn": []any{}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", text)
}

func TestCompilePredicate_WildcardOperators(t *testing.T) {
	tests := []struct {
		op    string
		text  string
		bound string
	}{
		{"contains", "u.name LIKE :name_0", "%oh%"},
		{"startsWith", "u.name LIKE :name_0", "Jo%"},
		{"endsWith", "u.name LIKE :name_0", "%hn"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			c := newAliasedContext(t, "user", "u")
			operand := map[string]string{
				"contains": "oh", "startsWith": "Jo", "endsWith": "hn",
			}[tt.op]

			text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
				"name": map[string]any{tt.op: operand},
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.bound, params["name_0"])
		})
	}
}

func TestCompilePredicate_CaseInsensitiveLike(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, _, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"iLike": "john%"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u.name LIKE :name_0 COLLATE NOCASE", text)
}

func TestCompilePredicate_NullOperatorsBindNothing(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"isNull": true},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u.name IS NULL", text)
	assert.Empty(t, params)

	c = newAliasedContext(t, "user", "u")
	text, params, err = c.CompilePredicate(parsePred(t, c, map[string]any{
		"name": map[string]any{"isNotNull": true},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u.name IS NOT NULL", text)
	assert.Empty(t, params)
}

func TestCompilePredicate_IntraFieldOr(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"age": map[string]any{"or": []any{
			map[string]any{"lt": 18},
			map[string]any{"gte": 65},
		}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "(u.age < :age_0 OR u.age >= :age_1)", text)
	assert.Equal(t, map[string]any{"age_0": 18, "age_1": 65}, params)
}

func TestCompilePredicate_RelationAutoJoins(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"posts": map[string]any{"published": map[string]any{"eq": true}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "u_posts.published = :published_0", text)
	assert.Equal(t, map[string]any{"published_0": true}, params)

	// The relation was joined implicitly, filter-only.
	require.Len(t, c.Joins(), 1)
	assert.Equal(t, "posts", c.Joins()[0].Path)
	assert.False(t, c.Joins()[0].Fetch)
}

func TestCompilePredicate_NestedRelationPath(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, _, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"posts": map[string]any{
			"comments": map[string]any{"body": map[string]any{"contains": "thanks"}},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, "u_posts_comments.body LIKE :body_0", text)
	assert.Len(t, c.Joins(), 2)
}

func TestCompilePredicate_MultipleOpsOneFieldAnded(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, _, err := c.CompilePredicate(parsePred(t, c, map[string]any{
		"age": map[string]any{"gte": 18, "lt": 65},
	}))
	require.NoError(t, err)

	// Operator keys are sorted, so gte renders before lt.
	assert.Equal(t, "(u.age >= :age_0 AND u.age < :age_1)", text)
}

func TestCompilePredicate_NilIsEmptyFilter(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	text, params, err := c.CompilePredicate(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, params)
}

func TestCompilePredicate_UnsupportedOperatorInHandBuiltTree(t *testing.T) {
	c := newAliasedContext(t, "user", "u")

	_, _, err := c.CompilePredicate(queryspec.FieldCondition{
		Field:       "name",
		Comparisons: []queryspec.Comparison{{Op: "foo", Value: 1}},
	})
	require.Error(t, err)
	assert.True(t, queryspec.IsUnsupportedOperator(err))
}
