package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/engine"
	"github.com/roach88/aircore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	Recording string // optional - defaults to the latest recording
	All       bool
}

// ReplayRecordingResult holds the replay result for a single recording.
type ReplayRecordingResult struct {
	RecordingID   string `json:"recording_id"`
	Config        string `json:"config"`
	Ticks         int    `json:"ticks"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Recordings       []ReplayRecordingResult `json:"recordings"`
	AllDeterministic bool                    `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recordings and verify determinism",
		Long: `Replay recorded inputs against a fresh engine and compare every
published value and fault with what was recorded, bit for bit.

The stored configuration is checked against its hash first. Replay stops
at the first divergence.

Exit codes:
  0 - All replayed recordings are deterministic
  1 - A divergence was found
  2 - Command error (database not found, unknown recording, etc.)

Examples:
  aircore replay --db ./aircore.db
  aircore replay --db ./aircore.db --recording 0190f7a2-...
  aircore replay --db ./aircore.db --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Recording, "recording", "", "replay a specific recording")
	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every recording")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ids, err := recordingIDs(ctx, st, opts.Recording, opts.All)
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error(), 0)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list recordings", err)
	}

	result := ReplayResult{
		Recordings:       make([]ReplayRecordingResult, 0, len(ids)),
		AllDeterministic: true,
	}
	logger := opts.logger(cmd.ErrOrStderr())
	for _, id := range ids {
		formatter.VerboseLog("Replaying %s", id)
		rr, err := store.Replay(ctx, st, id, opts.catalog(), engine.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", id), err)
		}
		r := ReplayRecordingResult{
			RecordingID:   id,
			Config:        rr.Recording.Name,
			Ticks:         rr.Ticks,
			Deterministic: rr.OK(),
		}
		if !rr.OK() {
			r.Divergence = rr.Divergence.String()
			result.AllDeterministic = false
		}
		result.Recordings = append(result.Recordings, r)
	}

	if err := formatter.SuccessFor("", result, func(w io.Writer) {
		writeReplayText(w, result)
	}); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

// recordingIDs resolves which recordings to replay: one by id, all of
// them, or the latest. An empty database yields no ids unless a specific
// recording was asked for.
func recordingIDs(ctx context.Context, st *store.Store, id string, all bool) ([]string, error) {
	switch {
	case id != "":
		if _, err := st.ReadRecording(ctx, id); err != nil {
			return nil, err
		}
		return []string{id}, nil
	case all:
		recs, err := st.ListRecordings(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		return ids, nil
	}
	rec, err := st.LatestRecording(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{rec.ID}, nil
}

func writeReplayText(w io.Writer, result ReplayResult) {
	if len(result.Recordings) == 0 {
		fmt.Fprintln(w, "No recordings found in database.")
		return
	}
	for _, r := range result.Recordings {
		if r.Deterministic {
			fmt.Fprintf(w, "✓ %s (%s): %s ticks reproduced\n", r.RecordingID, r.Config, humanize.Comma(int64(r.Ticks)))
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s): diverged at %s\n", r.RecordingID, r.Config, r.Divergence)
	}
}
