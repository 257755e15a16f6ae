package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbr4l0k/Scoop/internal/cli"
	"github.com/cbr4l0k/Scoop/internal/exec"
	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-ctx.Done()
		// A second signal gets the default behaviour
		stop()
	}()

	err := cli.Execute(ctx)

	// Clean up child processes that outlived their invocation
	if n := exec.Running(); n > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "[!] Killing %d running tool process(es)\n", n)
		exec.KillAllProcesses()
	}

	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		if ctx.Err() != nil {
			os.Exit(130) // Standard exit code for SIGINT
		}
		os.Exit(1)
	}
}
