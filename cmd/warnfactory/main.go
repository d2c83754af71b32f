package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucasnoah/warnfactory/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(Version)
	err := cli.ExecuteContext(ctx)
	code := cli.ExitCode(err)
	if code == 1 {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(code)
}
