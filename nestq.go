// Package nestq compiles declarative nested query documents into single
// parameterized SQLite statements and folds the joined result set back into
// the nested shape the caller asked for.
//
// A DB pairs one SQLite database with one schema registry. Queries start
// from DB.Query and build up through an immutable Builder; nothing is shared
// between executions, so a DB is safe for concurrent use.
package nestq

import (
	"github.com/nestq/nestq/internal/engine"
	"github.com/nestq/nestq/internal/store"
	"github.com/nestq/nestq/schema"
)

// DB is a queryable handle over one SQLite database and one schema.
type DB struct {
	schema *schema.Schema
	store  *store.Store
	engine *engine.Engine
}

// Open creates or opens the SQLite database at path and binds it to the
// given schema. The returned DB should be closed when no longer needed.
func Open(path string, s *schema.Schema) (*DB, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &DB{
		schema: s,
		store:  st,
		engine: engine.New(st),
	}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.store.Close()
}

// Schema returns the schema registry this DB was opened with.
func (db *DB) Schema() *schema.Schema {
	return db.schema
}

// Query starts a new query against the named root entity. Entity resolution
// is deferred to the terminal call so building stays infallible.
func (db *DB) Query(entity string) *Builder {
	return &Builder{db: db, entity: entity}
}
