package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/sunshine/internal/bench"
	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/store"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	Plan        string
	Suite       string
	RunsWithout int
	RunsWith    int
}

// BenchReport is the JSON payload of the bench command.
type BenchReport struct {
	Database string          `json:"database"`
	Results  []*bench.Result `json:"results"`
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{}

	cmd := &cobra.Command{
		Use:   "bench <db-file>",
		Short: "Compare query latency with and without secondary indexes",
		Long: `Run each benchmark plan against an existing database: drop the plan's
indexes, time the query, create the indexes and time it again.

Built-in plans are "join" (salaries joined with both dimensions) and
"lastname" (average salary of one last name). --suite reads plans from a
YAML or CUE file instead. Indexes are left created when the command ends.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Plan, "plan", "all", "plan to run (name or all)")
	cmd.Flags().StringVar(&opts.Suite, "suite", "", "YAML or CUE file with plans (replaces the built-in plans)")
	cmd.Flags().IntVar(&opts.RunsWithout, "runs-without", 0, "override runs without indexes (0 keeps the plan's count)")
	cmd.Flags().IntVar(&opts.RunsWith, "runs-with", 0, "override runs with indexes (0 keeps the plan's count)")

	return cmd
}

func runBench(cmd *cobra.Command, rootOpts *RootOptions, opts *BenchOptions, dbPath string) error {
	formatter := rootOpts.formatter(cmd)
	log := rootOpts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	if opts.RunsWithout < 0 || opts.RunsWith < 0 {
		return formatter.Fail(errs.New(errs.Precondition, "bench", "--runs-without and --runs-with must not be negative"))
	}

	plans := bench.Builtin()
	if opts.Suite != "" {
		loaded, err := bench.LoadSuite(opts.Suite)
		if err != nil {
			return formatter.Fail(err)
		}
		plans = loaded
	}
	plans, err := bench.Select(plans, opts.Plan)
	if err != nil {
		return formatter.Fail(err)
	}
	plans = overrideRuns(plans, opts.RunsWithout, opts.RunsWith)

	st, err := store.OpenExisting(ctx, dbPath, rootOpts.storeOptions(log))
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	if err := st.VerifySchema(ctx); err != nil {
		return formatter.Fail(err)
	}

	formatter.VerboseLog("Running %s against %s", strings.Join(planNames(plans), ", "), dbPath)
	results, err := bench.NewHarness(st, bench.Options{Logger: log}).CompareAll(ctx, plans)
	if err != nil {
		return formatter.Fail(err)
	}

	return formatter.Success(BenchReport{Database: dbPath, Results: results})
}

func planNames(plans []bench.Plan) []string {
	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = p.Name
	}
	return names
}

// overrideRuns returns copies of plans with positive overrides applied.
func overrideRuns(plans []bench.Plan, without, with int) []bench.Plan {
	out := make([]bench.Plan, len(plans))
	for i, p := range plans {
		if without > 0 {
			p.RunsWithout = without
		}
		if with > 0 {
			p.RunsWith = with
		}
		out[i] = p
	}
	return out
}

// FormatSpeedup renders a speedup ratio, or "undefined" when there is none.
func FormatSpeedup(speedup *float64) string {
	if speedup == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.2fx", *speedup)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}

func (report BenchReport) writeText(w io.Writer, _ bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Plan", "Indexes", "Rows", "Runs", "Median without", "Median with", "Speedup"})
	for _, r := range report.Results {
		t.AppendRow(table.Row{
			r.Plan,
			strings.Join(r.Indexes, "\n"),
			humanize.Comma(r.With.Rows),
			fmt.Sprintf("%d/%d", len(r.Without.Runs), len(r.With.Runs)),
			formatDuration(r.Without.Median),
			formatDuration(r.With.Median),
			FormatSpeedup(r.Speedup),
		})
	}
	t.Render()
	fmt.Fprintf(w, "Indexes on %s are left created.\n", report.Database)
}
