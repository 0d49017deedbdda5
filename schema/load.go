package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape shared by the YAML and CUE loaders.
type document struct {
	Entities []Entity `yaml:"entities" json:"entities"`
}

// Load reads a schema declaration file, dispatching on the extension:
// .yaml/.yml for YAML, .cue for CUE. Anything else is an error.
func Load(path string) (*Schema, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".cue":
		return LoadCUE(path)
	default:
		return nil, fmt.Errorf("unsupported schema file extension %q (want .yaml, .yml, or .cue)", filepath.Ext(path))
	}
}

// LoadYAML reads a YAML schema declaration file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a Schema from YAML bytes of the form:
//
//	entities:
//	  - name: user
//	    table: users
//	    fields:
//	      - {name: id, primaryKey: true}
//	      - {name: name}
//	    relations:
//	      - {name: posts, target: post, kind: hasMany}
func ParseYAML(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("schema declares no entities")
	}
	return New(doc.Entities...)
}

// LoadCUE reads a CUE schema declaration file. The file must evaluate to a
// struct with the same shape the YAML loader accepts.
func LoadCUE(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE builds a Schema from CUE source. The filename is used only for
// error positions.
func ParseCUE(data []byte, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compile schema cue: %w", err)
	}
	if err := val.Validate(); err != nil {
		return nil, fmt.Errorf("validate schema cue: %w", err)
	}

	var doc document
	if err := val.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema cue: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("schema declares no entities")
	}
	return New(doc.Entities...)
}
