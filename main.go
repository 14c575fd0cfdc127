package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/masvision/shelfsync/cmd"
	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/buildinfo"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &app.Context{Build: buildinfo.NewContext(version, buildDate)}
	defer func() {
		if err := appCtx.Log.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()

	if err := cmd.RootCommand(appCtx).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
