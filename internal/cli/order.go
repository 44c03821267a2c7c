package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/coupling"
)

// OrderResult describes the update order of a configuration.
type OrderResult struct {
	Config string          `json:"config"`
	Order  []string        `json:"order"`
	Levels [][]string      `json:"levels"`
	Edges  []coupling.Edge `json:"edges"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <config-dir>",
		Short: "Show the system update order",
		Long: `Show the coupling graph of a configuration and the order in which
systems are updated every tick.

Systems on the same level do not read each other's outputs. Feedback
ports are excluded from the graph.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runOrder(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, issues := ValidateConfigDir(configDir, opts.catalog())
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	graph, err := coupling.Build(cfg.Systems)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), 0)
	}

	result := OrderResult{
		Config: cfg.Name,
		Order:  graph.Order(),
		Levels: graph.Levels(),
		Edges:  graph.Edges(),
	}
	return formatter.SuccessFor("", result, func(w io.Writer) {
		fmt.Fprintf(w, "Update order for %s:\n", result.Config)
		for i, level := range result.Levels {
			fmt.Fprintf(w, "  %d. %s\n", i+1, strings.Join(level, ", "))
		}
		if len(result.Edges) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Couplings:")
			for _, e := range result.Edges {
				fmt.Fprintf(w, "  %s -> %s (%s)\n", e.From, e.To, strings.Join(e.Variables, ", "))
			}
		}
	})
}
