package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/schema"
)

// LoadSchema reads a schema registry from a YAML or CUE file.
func LoadSchema(path string) (*schema.Schema, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("loading schema %s", path), err)
	}
	return s, nil
}

// LoadQueryDocument reads a query document from a YAML or JSON file.
// YAML is a superset of JSON, so one decoder covers both.
func LoadQueryDocument(path string) (queryspec.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return queryspec.Document{}, WrapExitError(ExitCommandError, fmt.Sprintf("reading query %s", path), err)
	}

	var doc queryspec.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return queryspec.Document{}, WrapExitError(ExitCommandError, fmt.Sprintf("parsing query %s", path), err)
	}
	if doc.Entity == "" {
		return queryspec.Document{}, NewExitError(ExitCommandError, fmt.Sprintf("query %s has no entity", path))
	}
	return doc, nil
}
