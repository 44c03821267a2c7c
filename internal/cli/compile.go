package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes a compiled configuration.
type CompilationResult struct {
	Name          string  `json:"name"`
	Hash          string  `json:"hash"`
	Step          float64 `json:"step"`
	Variables     int     `json:"variables"`
	HostInputs    int     `json:"host_inputs"`
	Systems       int     `json:"systems"`
	IRVersion     string  `json:"ir_version"`
	EngineVersion string  `json:"engine_version"`
	Output        string  `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-dir>",
		Short: "Compile a CUE configuration to canonical JSON",
		Long: `Compile a CUE configuration package to canonical JSON.

The output is the exact form that recordings store and that the config
hash is computed over. Without --output the summary is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, fileCount, err := LoadConfig(configDir, opts.catalog())
	if err != nil {
		loadErr := loadErrorOf(err)
		return outputCommandError(formatter, loadErr.Code, loadErr.Message, loadErr.Line())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, configDir)

	canonical, err := ir.MarshalConfig(cfg)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), 0)
	}
	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), 0)
	}

	result := CompilationResult{
		Name:          cfg.Name,
		Hash:          hash,
		Step:          cfg.Step,
		Variables:     len(cfg.Variables),
		Systems:       len(cfg.Systems),
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
		Output:        opts.Output,
	}
	for _, v := range cfg.Variables {
		if v.Source == ir.SourceHost {
			result.HostInputs++
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0o644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), 0)
		}
	}

	return formatter.SuccessFor("", result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Compiled %s\n", result.Name)
		fmt.Fprintf(w, "  %d variables (%d host inputs), %d systems, step %s\n",
			result.Variables, result.HostInputs, result.Systems, stepString(result.Step))
		fmt.Fprintf(w, "  hash %s\n", result.Hash)
		fmt.Fprintf(w, "  engine %s (ir v%s)\n", result.EngineVersion, result.IRVersion)
		if result.Output != "" {
			fmt.Fprintf(w, "  written to %s\n", result.Output)
		}
	})
}

// outputCommandError reports an error that stopped a command before it
// could produce a result.
func outputCommandError(formatter *OutputFormatter, code, message string, line int) error {
	var details any
	if line > 0 {
		details = map[string]int{"line": line}
	}
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func stepString(step float64) string {
	if step == 0 {
		return "host-chosen"
	}
	return ir.FormatReal(step) + "s"
}
