package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/compiler"
	"github.com/roach88/aircore/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Config string            `json:"config,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one reported problem.
type ValidationIssue struct {
	Code    string   `json:"code"`
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
	Line    int      `json:"line,omitempty"`
	Path    []string `json:"path,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate a configuration",
		Long: `Validate a CUE configuration without running it.

Checks the schema, every port binding, variable ownership and the
coupling graph, and reports every problem found rather than the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, issues := ValidateConfigDir(configDir, opts.catalog())
	if cfg != nil {
		formatter.VerboseLog("Validating %s: %d variables, %d systems", cfg.Name, len(cfg.Variables), len(cfg.Systems))
	}
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}
	return outputValidateSuccess(formatter, cfg.Name)
}

// ValidateConfigDir loads and validates the configuration in dir. The
// config is nil when it could not be loaded.
func ValidateConfigDir(dir string, catalog compiler.Catalog) (*ir.Config, []ValidationIssue) {
	cfg, _, err := LoadConfig(dir, catalog)
	if err != nil {
		loadErr := loadErrorOf(err)
		return nil, []ValidationIssue{{
			Code:    loadErr.Code,
			Field:   "load",
			Message: loadErr.Message,
			Line:    loadErr.Line(),
		}}
	}

	var issues []ValidationIssue
	for _, v := range compiler.Validate(cfg, catalog) {
		issues = append(issues, ValidationIssue{
			Code:    string(v.Code),
			Field:   v.Field,
			Message: v.Message,
			Path:    v.Path,
		})
	}
	return cfg, issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, name string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Config: name})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", name)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	writeIssues(formatter.Writer, issues)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

func writeIssues(w io.Writer, issues []ValidationIssue) {
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "line %d\n", issue.Line)
		}
		if issue.Field != "" {
			fmt.Fprintf(w, "  %s %s: %s\n\n", issue.Code, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
}
