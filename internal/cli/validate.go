package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlgate/internal/querydef"
	"github.com/roach88/sqlgate/internal/validation"
)

// DefinitionCheck is the validation outcome of one definition file.
type DefinitionCheck struct {
	File    string   `json:"file"`
	Name    string   `json:"name,omitempty"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Definitions []DefinitionCheck `json:"definitions"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for _, d := range r.Definitions {
		switch {
		case d.Valid:
			fmt.Fprintf(&b, "ok    %s\n", d.File)
		case d.Error != "":
			fmt.Fprintf(&b, "FAIL  %s: %s\n", d.File, d.Error)
		default:
			fmt.Fprintf(&b, "FAIL  %s: missing %s\n", d.File, strings.Join(d.Missing, ", "))
		}
	}
	if r.Valid {
		fmt.Fprintf(&b, "All %d definition(s) valid", len(r.Definitions))
	} else {
		b.WriteString("Validation failed")
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition.yaml|dir>",
		Short: "Check query definitions for missing mandatory clauses",
		Long: `Parse every query definition and report the mandatory clauses each one
is missing, without connecting to a database.

A directory argument validates every *.yaml and *.yml file in it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, target string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := definitionFiles(target)
	if err != nil {
		_ = formatter.Error(ErrCodeDefinition, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}
	formatter.VerboseLog("Found %d definition file(s) in %s", len(files), target)

	result := ValidationResult{Valid: true}
	for _, file := range files {
		check := checkDefinition(file)
		if !check.Valid {
			result.Valid = false
		}
		result.Definitions = append(result.Definitions, check)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func checkDefinition(file string) DefinitionCheck {
	check := DefinitionCheck{File: file}

	doc, err := querydef.Load(file)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.Name = doc.Name

	q, err := doc.Query()
	if err != nil {
		check.Error = err.Error()
		return check
	}
	res := validation.Check(q)
	check.Valid = res.Valid
	check.Missing = res.Missing
	if _, err := doc.Parameters(); err != nil {
		check.Valid = false
		check.Error = err.Error()
	}
	return check
}

// definitionFiles lists target itself, or the YAML files in a directory.
func definitionFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(target, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no query definitions found in %s", target)
	}
	sort.Strings(files)
	return files, nil
}
