// Command sunshine loads salary disclosure records into a normalized SQLite
// schema and benchmarks index latency against it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/sunshine/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintf(os.Stderr, "sunshine: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
