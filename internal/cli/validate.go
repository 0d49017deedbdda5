package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// SchemaSummary is the JSON payload for a validated schema.
type SchemaSummary struct {
	Entities []EntitySummary `json:"entities"`
}

// EntitySummary describes one validated entity.
type EntitySummary struct {
	Name      string   `json:"name"`
	Table     string   `json:"table"`
	Fields    []string `json:"fields"`
	Relations []string `json:"relations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate a schema file",
		Long: `Load a YAML or CUE schema file, run registry validation, and print a
summary of its entities.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateCmd(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidateCmd(opts *ValidateOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sch, err := LoadSchema(schemaPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}

	summary := SchemaSummary{}
	for _, name := range sch.EntityNames() {
		ent, _ := sch.Entity(name)
		summary.Entities = append(summary.Entities, EntitySummary{
			Name:      ent.Name,
			Table:     ent.Table,
			Fields:    ent.FieldNames(),
			Relations: ent.RelationNames(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d entity(ies)\n\n", len(summary.Entities))
	for _, ent := range summary.Entities {
		fmt.Fprintf(formatter.Writer, "  %s (table %s): %d field(s), %d relation(s)\n",
			ent.Name, ent.Table, len(ent.Fields), len(ent.Relations))
	}
	return nil
}
