package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/ingest"
	"github.com/roach88/sunshine/internal/store"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	SkipInvalid   bool
	Delimiter     string
	ProgressEvery int
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{}

	cmd := &cobra.Command{
		Use:   "create <csv-file> <db-file>",
		Short: "Create a database and load salary records into it",
		Long: `Create a new SQLite database and load a delimited salary disclosure file.

The source must have a header row followed by rows with the fields
sector, last name, first name, salary, benefits, employer, job title, year.
The target must not exist yet. The whole load runs in one transaction: on
failure nothing is kept and the new database is removed again.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, rootOpts, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.SkipInvalid, "skip-invalid", false, "skip records whose fields fail to parse instead of aborting")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", `field delimiter (a single character, or \t for tab)`)
	cmd.Flags().IntVar(&opts.ProgressEvery, "progress-every", 0, "log progress every N records (0 disables)")

	return cmd
}

func runCreate(cmd *cobra.Command, rootOpts *RootOptions, opts *CreateOptions, source, target string) error {
	formatter := rootOpts.formatter(cmd)
	log := rootOpts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	delimiter, err := parseDelimiter(opts.Delimiter)
	if err != nil {
		return formatter.Fail(err)
	}

	// Check the source before anything is written.
	if info, err := os.Stat(source); errors.Is(err, os.ErrNotExist) {
		return formatter.Fail(errs.Newf(errs.Precondition, "create", "source %s not found", source))
	} else if err != nil {
		return formatter.Fail(errs.Wrapf(errs.Precondition, err, "create", "stat source %s", source))
	} else if info.IsDir() {
		return formatter.Fail(errs.Newf(errs.Precondition, "create", "source %s is a directory", source))
	}

	st, err := store.Create(ctx, target, rootOpts.storeOptions(log))
	if err != nil {
		return formatter.Fail(err)
	}

	policy := ingest.PolicyAbort
	if opts.SkipInvalid {
		policy = ingest.PolicySkip
	}
	formatter.VerboseLog("Loading %s into %s (policy %s)", source, target, policy)

	summary, loadErr := ingest.LoadFile(ctx, st, source, ingest.Options{
		Policy:        policy,
		Delimiter:     delimiter,
		Logger:        log,
		ProgressEvery: opts.ProgressEvery,
	})
	closeErr := st.Close()

	if loadErr != nil {
		if err := store.Remove(target); err != nil {
			log.Warn("could not remove database after failed load", "path", target, "error", err)
		}
		return formatter.Fail(loadErr)
	}
	if closeErr != nil {
		return formatter.Fail(store.Classify("close store", closeErr))
	}

	return formatter.Success(createReport{summary})
}

// createReport is the result of the create command. Its JSON form is the
// load summary.
type createReport struct {
	*ingest.Summary
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, errs.Newf(errs.Precondition, "create", "invalid delimiter %q: must be a single character", s)
	}
	return r, nil
}

func (r createReport) writeText(w io.Writer, verbose bool) {
	s := r.Summary
	fmt.Fprintf(w, "✓ Loaded %s record(s) from %s into %s in %s\n",
		humanize.Comma(int64(s.RowsLoaded)), s.Source, s.Database, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  employers:   %s\n", humanize.Comma(s.Counts.Employers))
	fmt.Fprintf(w, "  individuals: %s\n", humanize.Comma(s.Counts.Individuals))
	fmt.Fprintf(w, "  salaries:    %s\n", humanize.Comma(s.Counts.Salaries))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped:     %s\n", humanize.Comma(int64(len(s.Skipped))))
		if verbose {
			for _, sk := range s.Skipped {
				fmt.Fprintf(w, "    %s\n", sk.Reason)
			}
		}
	}
}
