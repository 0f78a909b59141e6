// Command docchat answers questions about documents, either once from the
// command line (docchat ask) or for many clients over HTTP (docchat serve).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/54b3r/docchat-go/cmd/docchat/commands"
)

// exitInterrupted is the conventional status for a run cut short by SIGINT.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "docchat:", err)
	if interrupted {
		os.Exit(exitInterrupted)
	}
	os.Exit(1)
}
