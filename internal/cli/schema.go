package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/store"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Database string            `json:"database"`
	Version  int               `json:"version"`
	Output   string            `json:"output,omitempty"`
	Schema   string            `json:"schema"`
	Indexes  []store.IndexInfo `json:"indexes"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <db-file> [output-file]",
		Short: "Dump table and index definitions",
		Long: `Print the CREATE statements of every table and index in an existing
database, tables first. With an output file the dump is written there
instead.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			return runSchema(cmd, rootOpts, args[0], output)
		},
	}

	return cmd
}

func runSchema(cmd *cobra.Command, rootOpts *RootOptions, dbPath, output string) error {
	formatter := rootOpts.formatter(cmd)
	log := rootOpts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	st, err := store.OpenExisting(ctx, dbPath, rootOpts.storeOptions(log))
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	dump, err := st.DumpSchema(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	version, err := st.SchemaVersion(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	indexes, err := st.ListIndexes(ctx, "")
	if err != nil {
		return formatter.Fail(err)
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(dump+"\n"), 0o644); err != nil {
			return formatter.Fail(errs.Wrapf(errs.Precondition, err, "schema", "write %s", output))
		}
		formatter.VerboseLog("Wrote %d bytes to %s", len(dump)+1, output)
	}

	return formatter.Success(SchemaResult{
		Database: dbPath,
		Version:  version,
		Output:   output,
		Schema:   dump,
		Indexes:  indexes,
	})
}

func (r SchemaResult) writeText(w io.Writer, _ bool) {
	if r.Output != "" {
		fmt.Fprintf(w, "✓ Wrote schema of %s to %s\n", r.Database, r.Output)
		return
	}
	fmt.Fprintln(w, r.Schema)
}
