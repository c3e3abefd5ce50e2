// Command sqlgate renders, validates and runs SQL query definitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/sqlgate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sqlgate:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
