package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/compiler"
	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/systems"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Catalog resolves model names. Nil means systems.Default().
	Catalog compiler.Catalog
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// catalog returns the configured model catalog.
func (o *RootOptions) catalog() compiler.Catalog {
	if o.Catalog != nil {
		return o.Catalog
	}
	return systems.Default()
}

// logger returns a text logger on w. Engine chatter is only shown with
// --verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCommand creates the root command for the aircore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "aircore",
		Short:   "aircore - aircraft systems simulation core",
		Version: ir.EngineVersion,
		Long: `Deterministic fixed-step simulation of coupled aircraft systems.

Configurations are CUE packages declaring typed variables and the systems
that read and write them. Runs are recorded to SQLite and can be replayed
bit for bit.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// newFormatter builds the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keeps JSON on stdout clean
		Verbose:   opts.Verbose,
	}
}
