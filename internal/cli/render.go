package cli

import (
	"github.com/spf13/cobra"
)

// RenderResult is the output of the render command.
type RenderResult struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
}

func (r RenderResult) String() string { return r.SQL }

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <definition.yaml>",
		Short: "Print the SQL a query definition composes to",
		Long: `Build a query definition and print the resulting statement without
connecting to a database.

Example:
  sqlgate render queries/active-users.yaml
  sqlgate render queries/active-users.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, args[0], cmd)
		},
	}
}

func runRender(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := loadDefinition(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "render failed", err)
	}

	formatter.VerboseLog("Rendered %s query %q", def.doc.Kind, def.doc.Name)
	return formatter.Success(RenderResult{Name: def.doc.Name, Kind: def.doc.Kind, SQL: def.sql})
}
