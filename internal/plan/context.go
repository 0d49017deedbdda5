package plan

import (
	"fmt"
	"strings"

	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/schema"
)

// AliasEntry records the stable alias assigned to one relation path.
type AliasEntry struct {
	Alias string
	Path  string
}

// Join is one LEFT JOIN of the compiled query.
type Join struct {
	// Path is the dotted relation path from the root, e.g. "posts.comments".
	Path string

	// ParentPath is Path minus its last segment; "" for first-level joins.
	ParentPath string

	ParentAlias string
	Alias       string

	// Relation is the edge being joined; Entity is its target.
	Relation *schema.Relation
	Entity   *schema.Entity

	// Fetch marks the join as column-bearing: its columns appear in the
	// SELECT list and hydrate into the entity graph. Joins created
	// implicitly by predicate or ordering paths are filter-only.
	Fetch bool

	// OutKey is the materialized output key: the inclusion's alias
	// override when given, otherwise the relation name.
	OutKey string
}

// Context is the compilation state for one query execution: the alias
// registry, the accumulated join list, the projection plan, and the
// parameter counter. It must not be shared between executions.
type Context struct {
	schema    *schema.Schema
	root      *schema.Entity
	rootAlias string

	entries map[string]AliasEntry // path -> entry; "" is the root
	byAlias map[string]string     // alias -> path, for conflict detection
	joins   []*Join
	byPath  map[string]*Join

	projection *Projection
	paramSeq   int
}

// NewContext builds a fresh compilation context rooted at the named entity.
// An empty rootAlias defaults to the entity name.
func NewContext(sch *schema.Schema, entity, rootAlias string) (*Context, error) {
	root, ok := sch.Entity(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (known: %s)",
			entity, strings.Join(sch.EntityNames(), ", "))
	}
	if rootAlias == "" {
		rootAlias = root.Name
	}
	c := &Context{
		schema:    sch,
		root:      root,
		rootAlias: rootAlias,
		entries:   map[string]AliasEntry{"": {Alias: rootAlias, Path: ""}},
		byAlias:   map[string]string{rootAlias: ""},
		byPath:    map[string]*Join{},
		projection: &Projection{
			RootColumns: map[string]ColumnSel{},
			Children:    map[string]*RelationNode{},
		},
	}
	return c, nil
}

// Root returns the root entity.
func (c *Context) Root() *schema.Entity { return c.root }

// RootAlias returns the root alias.
func (c *Context) RootAlias() string { return c.rootAlias }

// Joins returns the joins created so far, in creation order (parents always
// precede children).
func (c *Context) Joins() []*Join { return c.joins }

// Resolve returns the AliasEntry for a dotted relation path, creating joins
// for any unresolved segments. Resolution is idempotent: a path that already
// has an entry is returned unchanged, and an existing join is never joined
// twice.
//
// fetch upgrades the final join to column-bearing; aliasOverride, when
// non-empty, names the final join's alias (and output key) instead of the
// synthesized one. Both apply only when fetch is requested, i.e. from the
// inclusion planner.
func (c *Context) Resolve(path string, fetch bool, aliasOverride string) (AliasEntry, error) {
	if path == "" {
		return c.entries[""], nil
	}

	if entry, ok := c.entries[path]; ok {
		if fetch {
			join := c.byPath[path]
			join.Fetch = true
			if aliasOverride != "" && join.Alias != aliasOverride {
				// The path was first joined under its synthesized alias
				// (e.g. by a predicate); the explicit inclusion only
				// renames the output, not the established SQL alias.
				join.OutKey = aliasOverride
			}
		}
		return entry, nil
	}

	segments := strings.Split(path, ".")
	current := c.root
	prefix := ""

	for i, segment := range segments {
		parentPrefix := prefix
		if prefix == "" {
			prefix = segment
		} else {
			prefix = prefix + "." + segment
		}

		if _, ok := c.entries[prefix]; ok {
			current = c.byPath[prefix].Entity
			continue
		}

		rel, ok := current.Relation(segment)
		if !ok {
			return AliasEntry{}, &queryspec.RelationNotFoundError{
				Entity:    current.Name,
				Relation:  segment,
				Path:      path,
				Available: current.RelationNames(),
			}
		}
		target, _ := c.schema.Entity(rel.Target)

		last := i == len(segments)-1
		alias := c.rootAlias + "_" + strings.Join(segments[:i+1], "_")
		outKey := rel.Name
		if last && fetch && aliasOverride != "" {
			alias = aliasOverride
			outKey = aliasOverride
		}
		if existing, dup := c.byAlias[alias]; dup {
			return AliasEntry{}, &AliasConflictError{
				Alias:        alias,
				ExistingPath: existing,
				NewPath:      prefix,
			}
		}

		join := &Join{
			Path:        prefix,
			ParentPath:  parentPrefix,
			ParentAlias: c.entries[parentPrefix].Alias,
			Alias:       alias,
			Relation:    rel,
			Entity:      target,
			Fetch:       last && fetch,
			OutKey:      outKey,
		}
		c.entries[prefix] = AliasEntry{Alias: alias, Path: prefix}
		c.byAlias[alias] = prefix
		c.byPath[prefix] = join
		c.joins = append(c.joins, join)

		current = target
	}

	return c.entries[path], nil
}

// entityAt returns the entity a resolved path lands on. The path must have
// been resolved already.
func (c *Context) entityAt(path string) *schema.Entity {
	if path == "" {
		return c.root
	}
	return c.byPath[path].Entity
}

// joinFor returns the join for a resolved non-root path.
func (c *Context) joinFor(path string) *Join {
	return c.byPath[path]
}
