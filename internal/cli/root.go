package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlgate/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config    string // path to a CUE config file
	Driver    string
	DSN       string
	SubjectID int64
	Address   string

	cfg config.Config // resolved before any subcommand runs
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlgate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlgate",
		Short: "sqlgate - typed SQL composition and execution",
		Long: `Render, validate and run SQL query definitions.

Query definitions are YAML documents describing a select, insert, update,
delete or stored procedure call. Connection settings come from a CUE config
file and may be overridden by flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := opts.settings()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.cfg = cfg
			level := cfg.Level()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Config, "config", "", "CUE config file")
	pf.StringVar(&opts.Driver, "driver", "", "database driver (sqlserver|azuresql|sqlite3)")
	pf.StringVar(&opts.DSN, "dsn", "", "data source name")
	pf.Int64Var(&opts.SubjectID, "subject-id", 0, "subject id pushed into each connection")
	pf.StringVar(&opts.Address, "address", "", "originating address pushed into each connection")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))

	return cmd
}

// settings loads the config file, or the defaults, and applies flag
// overrides.
func (o *RootOptions) settings() (config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
	}
	if o.SubjectID > 0 {
		cfg.Identity.SubjectID = o.SubjectID
	}
	if o.Address != "" {
		cfg.Identity.Address = o.Address
	}
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keep diagnostics out of JSON output
		Verbose:   o.Verbose,
	}
}
