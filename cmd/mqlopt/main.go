// Command mqlopt rewrites $expr filters into $match stages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/vinicius-lino-figueiredo/mqlopt/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
