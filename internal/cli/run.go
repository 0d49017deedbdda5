package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nestq/nestq"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SchemaPath string
	DBPath     string
	WithCount  bool
}

// RunResult is the JSON payload for an executed query.
type RunResult struct {
	Entity string           `json:"entity"`
	Rows   []map[string]any `json:"rows"`
	Count  *int64           `json:"count,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Execute a query document against a SQLite database",
		Long: `Compile a YAML or JSON query document, execute it against the given
SQLite database, and print the materialized entities.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.SchemaPath, "schema", "s", "", "schema file (yaml or cue)")
	cmd.Flags().StringVarP(&opts.DBPath, "db", "d", "", "SQLite database file")
	cmd.Flags().BoolVar(&opts.WithCount, "count", false, "include the unpaged entity count")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runRunCmd(opts *RunOptions, queryPath string, cmd *cobra.Command) error {
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

	db, err := nestq.Open(opts.DBPath, sch)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("opening database %s", opts.DBPath), err)
	}
	defer db.Close()

	builder := db.Query(doc.Entity)
	if len(doc.Where) > 0 {
		builder = builder.Where(doc.Where)
	}
	if len(doc.Include) > 0 {
		builder = builder.Include(doc.Include)
	}
	if len(doc.Select) > 0 {
		builder = builder.Select(doc.Select)
	}
	for _, order := range doc.OrderBy {
		builder = builder.OrderBy(order.Field, order.Direction)
	}
	if doc.Skip != nil {
		builder = builder.Skip(*doc.Skip)
	}
	if doc.Take != nil {
		builder = builder.Take(*doc.Take)
	}

	if opts.Verbose {
		if sqlText, _, err := builder.SQL(); err == nil {
			formatter.VerboseLog("SQL: %s", sqlText)
		}
	}

	result := &RunResult{Entity: doc.Entity}
	ctx := cmd.Context()

	if opts.WithCount {
		rows, count, err := builder.ManyWithCount(ctx)
		if err != nil {
			return outputRunError(formatter, err)
		}
		result.Rows, result.Count = rows, &count
	} else {
		rows, err := builder.Many(ctx)
		if err != nil {
			return outputRunError(formatter, err)
		}
		result.Rows = rows
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%d %s row(s)\n", len(result.Rows), result.Entity)
	if result.Count != nil {
		fmt.Fprintf(formatter.Writer, "%d total\n", *result.Count)
	}
	for _, row := range result.Rows {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshaling row: %w", err)
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", line)
	}
	return nil
}

func outputRunError(formatter *OutputFormatter, err error) error {
	code := ClassifyError(err)
	_ = formatter.Error(code, err.Error(), nil)

	// Compile-stage failures are command errors; execution failures are not.
	exit := ExitCommandError
	if code == ErrCodeExecution || code == ErrCodeGeneric {
		exit = ExitQueryError
	}
	return WrapExitError(exit, fmt.Sprintf("%s: query failed", code), err)
}
