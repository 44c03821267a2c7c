package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Recording string   // optional - defaults to the latest recording
	Variables []string // optional - filter to these variables
	List      bool
}

// TraceTick is one recorded tick in display form.
type TraceTick struct {
	Tick   uint64         `json:"tick"`
	DT     float64        `json:"dt"`
	Inputs map[string]any `json:"inputs,omitempty"`
	Values map[string]any `json:"values"`
	Faults []store.Fault  `json:"faults,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RecordingID string      `json:"recording_id"`
	Config      string      `json:"config"`
	ConfigHash  string      `json:"config_hash"`
	Step        float64     `json:"step"`
	Variables   []string    `json:"variables"`
	Ticks       []TraceTick `json:"ticks"`
}

// RecordingSummary is one line of the recording list.
type RecordingSummary struct {
	ID     string  `json:"id"`
	Config string  `json:"config"`
	Step   float64 `json:"step"`
	Ticks  int     `json:"ticks"`
	Seq    int64   `json:"seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded run",
		Long: `Show the recorded ticks of a run: the inputs staged before each tick,
the published values after it, and any faults.

Without --recording the latest recording is shown. --list prints every
recording in the database instead.

Examples:
  aircore trace --db ./aircore.db
  aircore trace --db ./aircore.db --recording 0190f7a2-... --var elec.level --var fctl.position
  aircore trace --db ./aircore.db --list
  aircore trace --db ./aircore.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Recording, "recording", "", "recording to show")
	cmd.Flags().StringArrayVar(&opts.Variables, "var", nil, "show only this variable (repeatable)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recordings")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.List {
		return listRecordings(ctx, st, formatter)
	}

	var rec *store.Recording
	if opts.Recording != "" {
		rec, err = st.ReadRecording(ctx, opts.Recording)
	} else {
		rec, err = st.LatestRecording(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error(), 0)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recording", err)
	}

	ticks, err := st.ReadTicks(ctx, rec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ticks", err)
	}

	result, err := buildTrace(rec, ticks, opts.Variables)
	if err != nil {
		return outputCommandError(formatter, string(ir.ErrCodeUnknownVariable), err.Error(), 0)
	}
	return formatter.SuccessFor(rec.ID, result, func(w io.Writer) {
		writeTraceText(w, result)
	})
}

// buildTrace converts stored ticks into display form, keeping only vars
// when given. Variables are listed in declaration order.
func buildTrace(rec *store.Recording, ticks []store.TickRecord, vars []string) (TraceResult, error) {
	cfg := rec.Config
	names := make([]string, 0, len(cfg.Variables))
	if len(vars) == 0 {
		for _, v := range cfg.Variables {
			names = append(names, v.Name)
		}
	} else {
		for _, name := range vars {
			id := ir.NormalizeID(name)
			if _, ok := cfg.Variable(id); !ok {
				return TraceResult{}, fmt.Errorf("variable %q is not declared in %s", name, rec.Name)
			}
			names = append(names, id)
		}
	}

	result := TraceResult{
		RecordingID: rec.ID,
		Config:      rec.Name,
		ConfigHash:  rec.ConfigHash,
		Step:        rec.Step,
		Variables:   names,
		Ticks:       make([]TraceTick, 0, len(ticks)),
	}
	for _, tr := range ticks {
		tt := TraceTick{
			Tick:   tr.Tick,
			DT:     tr.DT,
			Values: make(map[string]any, len(names)),
			Faults: tr.Faults,
		}
		for _, name := range names {
			decl, _ := cfg.Variable(name)
			if v, ok := tr.Inputs[name]; ok {
				if tt.Inputs == nil {
					tt.Inputs = make(map[string]any)
				}
				tt.Inputs[name] = displayValue(decl, v)
			}
			tt.Values[name] = displayValue(decl, tr.Outputs[name])
		}
		result.Ticks = append(result.Ticks, tt)
	}
	return result, nil
}

// displayValue renders v as a JSON-friendly value. Enums show their label.
func displayValue(decl ir.VariableDecl, v ir.Value) any {
	switch v.Kind() {
	case ir.KindBool:
		return v.AsBool()
	case ir.KindInt:
		return v.AsInt()
	case ir.KindReal:
		return v.AsReal()
	case ir.KindEnum:
		if o := v.Ordinal(); o >= 0 && o < len(decl.Values) {
			return decl.Values[o]
		}
	}
	return v.String()
}

func writeTraceText(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Recording %s (%s), step %s, %s ticks\n",
		r.RecordingID, r.Config, stepString(r.Step), humanize.Comma(int64(len(r.Ticks))))
	for _, tt := range r.Ticks {
		fmt.Fprintf(w, "\ntick %d (dt %s)\n", tt.Tick, ir.FormatReal(tt.DT))
		for _, name := range r.Variables {
			if in, ok := tt.Inputs[name]; ok {
				fmt.Fprintf(w, "  < %s = %v\n", name, in)
			}
		}
		for _, name := range r.Variables {
			fmt.Fprintf(w, "    %s = %v\n", name, tt.Values[name])
		}
		for _, f := range tt.Faults {
			where := f.System
			if where == "" {
				where = "engine"
			}
			fmt.Fprintf(w, "  ! %s %s: %s\n", f.Code, where, f.Message)
		}
	}
}

func listRecordings(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	recs, err := st.ListRecordings(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list recordings", err)
	}
	summaries := make([]RecordingSummary, 0, len(recs))
	for _, r := range recs {
		n, err := st.CountTicks(ctx, r.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count ticks", err)
		}
		summaries = append(summaries, RecordingSummary{ID: r.ID, Config: r.Name, Step: r.Step, Ticks: n, Seq: r.Seq})
	}

	return formatter.SuccessFor("", summaries, func(w io.Writer) {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No recordings found in database.")
			return
		}
		for _, s := range summaries {
			fmt.Fprintf(w, "%s  %-12s %8s ticks  step %s\n",
				s.ID, s.Config, humanize.Comma(int64(s.Ticks)), stepString(s.Step))
		}
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 20))
		fmt.Fprintf(w, "%s recording(s)\n", humanize.Comma(int64(len(summaries))))
	})
}
