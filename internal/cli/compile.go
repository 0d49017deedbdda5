package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nestq/nestq/internal/plan"
	"github.com/nestq/nestq/internal/queryspec"
	"github.com/nestq/nestq/internal/querysql"
	"github.com/nestq/nestq/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	SchemaPath string
}

// CompiledQuery is the JSON payload for a compiled statement.
type CompiledQuery struct {
	Entity string         `json:"entity"`
	SQL    string         `json:"sql"`
	Params map[string]any `json:"params"`
	Joins  []string       `json:"joins,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile a query document to SQL",
		Long: `Compile a YAML or JSON query document against a schema and print the
parameterized SQL statement without executing it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.SchemaPath, "schema", "s", "", "schema file (yaml or cue)")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runCompileCmd(opts *CompileOptions, queryPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sch, err := LoadSchema(opts.SchemaPath)
	if err != nil {
		return err
	}
	doc, err := LoadQueryDocument(queryPath)
	if err != nil {
		return err
	}

	formatter.VerboseLog("Compiling query for entity %q", doc.Entity)

	compiled, err := compileDocument(sch, doc)
	if err != nil {
		code := ClassifyError(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: compile failed", code), err)
	}

	if formatter.Format == "json" {
		return formatter.Success(compiled)
	}

	fmt.Fprintln(formatter.Writer, compiled.SQL)
	if len(compiled.Params) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Params:")
		names := make([]string, 0, len(compiled.Params))
		for name := range compiled.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(formatter.Writer, "  :%s = %v\n", name, compiled.Params[name])
		}
	}
	return nil
}

// compileDocument runs the full compile pipeline on one document.
func compileDocument(sch *schema.Schema, doc queryspec.Document) (*CompiledQuery, error) {
	spec, err := queryspec.ParseDocument(sch, doc)
	if err != nil {
		return nil, err
	}
	p, err := plan.Compile(sch, spec)
	if err != nil {
		return nil, err
	}
	stmt := querysql.Select(p)

	joins := make([]string, 0, len(p.Joins))
	for _, j := range p.Joins {
		joins = append(joins, j.Path)
	}
	return &CompiledQuery{
		Entity: p.Entity.Name,
		SQL:    stmt.SQL,
		Params: stmt.Params,
		Joins:  joins,
	}, nil
}
