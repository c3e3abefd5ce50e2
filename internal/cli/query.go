package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlgate/internal/session"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Args []string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <definition.yaml>",
		Short: "Run a row-returning query definition and print the rows",
		Long: `Build a query definition, run it, and print every row in the order the
database returns them.

Example:
  sqlgate query --driver sqlite3 --dsn app.db queries/active-users.yaml
  sqlgate query --config prod.cue queries/orders.yaml --arg customer=42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "parameter value as name=value (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := loadDefinition(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	callOpts, _, err := def.callOptions(args)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, cleanup, err := opts.openSession(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeConnection, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	defer cleanup()

	formatter.VerboseLog("Running %s", def.sql)

	table := Table{Columns: []string{}, Rows: [][]any{}}
	callOpts = append(callOpts, session.WithColumns(func(cols []string) { table.Columns = cols }))
	rows, err := session.Query(ctx, sess, def.query, func(row session.Row) ([]any, error) {
		return scanValues(row, len(table.Columns))
	}, callOpts...)
	if err != nil {
		code, exit := sessionFailure(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(exit, "query failed", err)
	}
	table.Rows = rows

	return formatter.Rows(table)
}

// scanValues reads one row generically. Byte slices are returned as text.
func scanValues(row session.Row, n int) ([]any, error) {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}
