package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/harness"
	"github.com/roach88/aircore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// NewID allows overriding the recording id generator (for testing).
	// If nil, defaults to UUIDv7.
	NewID func() string
}

// RunResult summarizes one recorded run.
type RunResult struct {
	Scenario    string   `json:"scenario"`
	Config      string   `json:"config"`
	RecordingID string   `json:"recording_id"`
	Ticks       int      `json:"ticks"`
	SimTime     float64  `json:"sim_time"`
	Faults      int      `json:"faults"`
	Stopped     string   `json:"stopped,omitempty"`
	Pass        bool     `json:"pass"`
	Errors      []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record it",
		Long: `Run a scenario's input schedule against its configuration and record
every tick to a SQLite database (created if it doesn't exist).

The recording can later be checked with replay and inspected with trace.
Scenario assertions are evaluated; a failed assertion exits with 1 but the
recording is kept.

Example:
  aircore run --db ./aircore.db ./testdata/scenarios/charging.yaml
  aircore run --db /tmp/test.db ./scenario.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error(), 0)
	}

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	id := newID()

	res, err := harness.Run(scenario,
		harness.WithCatalog(opts.catalog()),
		harness.WithLogger(logger),
		harness.WithStore(st),
		harness.WithRecordingID(id),
	)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), 0)
	}

	result := RunResult{
		Scenario:    scenario.Name,
		Config:      res.Config.Name,
		RecordingID: res.RecordingID,
		Ticks:       len(res.Trace),
		Stopped:     res.Stopped,
		Pass:        res.Pass,
		Errors:      res.Errors,
	}
	for _, tt := range res.Trace {
		result.SimTime += tt.DT
		result.Faults += len(tt.Faults)
	}
	logger.Info("run recorded", "recording", result.RecordingID, "ticks", result.Ticks)

	if err := formatter.SuccessFor(result.RecordingID, result, func(w io.Writer) {
		writeRunText(w, result)
	}); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

func writeRunText(w io.Writer, r RunResult) {
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", mark, r.Scenario, r.Config)
	fmt.Fprintf(w, "  recording %s\n", r.RecordingID)
	fmt.Fprintf(w, "  %s ticks, %ss simulated, %s faults\n",
		humanize.Comma(int64(r.Ticks)), humanize.FtoaWithDigits(r.SimTime, 6), humanize.Comma(int64(r.Faults)))
	if r.Stopped != "" {
		fmt.Fprintf(w, "  stopped: %s\n", r.Stopped)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
