package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aircore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Ticks  int      `json:"ticks"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run scenario assertions",
		Long: `Run YAML test scenarios and check their assertions.

<scenarios> is a scenario file or a directory of them. When a golden file
exists next to a scenario (golden/<name>.golden) the trace must also match
it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  aircore test ./testdata/scenarios
  aircore test ./testdata/scenarios --filter "charging*"
  aircore test ./testdata/scenarios --update
  aircore test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosPath string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios path not found: %s", scenariosPath))
	}

	files, err := harness.FindScenarios(scenariosPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(file, opts, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// filterScenarios keeps files whose base name (without extension) matches
// the glob pattern.
func filterScenarios(files []string, filter string) ([]string, error) {
	if filter == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(file string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		w = io.Discard
	}
	fail := func(name string, errs ...string) ScenarioResult {
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return ScenarioResult{Name: name, Errors: errs}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("load error: %v", err))
	}

	result, err := harness.Run(scenario,
		harness.WithCatalog(opts.catalog()),
		harness.WithLogger(opts.logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	golden := goldenFilePath(file)
	switch {
	case opts.Update:
		if err := updateGoldenFile(scenario.Name, result, golden); err != nil {
			return fail(scenario.Name, fmt.Sprintf("golden update error: %v", err))
		}
		fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		return ScenarioResult{Name: scenario.Name, Pass: true, Ticks: len(result.Trace)}
	case fileExists(golden):
		match, err := compareWithGolden(scenario.Name, result, golden)
		if err != nil {
			return fail(scenario.Name, fmt.Sprintf("golden comparison error: %v", err))
		}
		if !match {
			return fail(scenario.Name, "golden file mismatch (run with --update to regenerate)")
		}
	}

	if !result.Pass {
		sr := fail(scenario.Name, result.Errors...)
		sr.Ticks = len(result.Trace)
		return sr
	}
	fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	return ScenarioResult{Name: scenario.Name, Pass: true, Ticks: len(result.Trace)}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(name string, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := harness.MarshalTrace(name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result trace against the golden file.
func compareWithGolden(name string, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	current, err := harness.MarshalTrace(name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal current trace: %w", err)
	}
	return bytes.Equal(goldenData, current), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
