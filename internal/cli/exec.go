package cli

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlgate/internal/param"
	"github.com/roach88/sqlgate/internal/session"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Args []string
	Tx   bool
}

// ExecResult is the output of the exec command.
type ExecResult struct {
	Name     string         `json:"name"`
	Affected int64          `json:"affected"`
	Outputs  map[string]any `json:"outputs,omitempty"`
}

func (r ExecResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d row(s) affected", r.Affected)
	for _, name := range sortedKeys(r.Outputs) {
		fmt.Fprintf(&b, "\n%s = %s", name, cell(r.Outputs[name]))
	}
	return b.String()
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <definition.yaml>",
		Short: "Run a non-query definition and print the affected row count",
		Long: `Build an insert, update, delete or procedure definition and run it.

Output and inout parameters declared by the definition are printed after
the call. With --tx the statement runs inside a transaction that is
committed on success and rolled back on failure.

Example:
  sqlgate exec --driver sqlite3 --dsn app.db queries/rename-user.yaml
  sqlgate exec --config prod.cue queries/tally.yaml --arg from=2024-01-01`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "parameter value as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Tx, "tx", false, "run inside a transaction")

	return cmd
}

func runExec(opts *ExecOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := loadDefinition(path)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "exec failed", err)
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "exec failed", err)
	}
	callOpts, params, err := def.callOptions(args)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "exec failed", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, cleanup, err := opts.openSession(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeConnection, err.Error(), nil)
		return WrapExitError(ExitCommandError, "exec failed", err)
	}
	defer cleanup()

	formatter.VerboseLog("Running %s", def.sql)

	affected, err := execute(ctx, sess, opts.Tx, func() (int64, error) {
		return sess.Execute(ctx, def.query, callOpts...)
	})
	if err != nil {
		code, exit := sessionFailure(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(exit, "exec failed", err)
	}

	return formatter.Success(ExecResult{Name: def.doc.Name, Affected: affected, Outputs: outputs(params)})
}

// execute runs fn, inside a transaction when tx is set. A failed call rolls
// the transaction back.
func execute(ctx context.Context, sess *session.Session, tx bool, fn func() (int64, error)) (int64, error) {
	if !tx {
		return fn()
	}
	if err := sess.Begin(ctx, sql.LevelDefault); err != nil {
		return 0, err
	}
	n, err := fn()
	if err != nil {
		_ = sess.Rollback()
		return 0, err
	}
	if err := sess.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func outputs(params []*param.Parameter) map[string]any {
	out := make(map[string]any)
	for _, p := range params {
		if p.Direction != param.DirIn {
			out[p.BindName()] = p.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
