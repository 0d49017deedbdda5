package cli

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `entities:
  - name: user
    table: users
    fields:
      - {name: id, primaryKey: true}
      - {name: name}
      - {name: age}
    relations:
      - {name: posts, target: post, kind: hasMany}
  - name: post
    table: posts
    fields:
      - {name: id, primaryKey: true}
      - {name: title}
      - {name: published}
`

// execute runs the CLI against the given args, capturing stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile drops contents into a temp file and returns its path.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func seedDatabase(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT, published INTEGER)",
		"INSERT INTO users VALUES (1, 'Ada', 36), (2, 'Grace', 40)",
		"INSERT INTO posts VALUES (10, 1, 'Engines', 1), (11, 1, 'Notes', 0)",
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}
