// Command prox-mesh routes plan, research, edit, ask and generate actions to
// external AI command-line tools.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/proxoffensive/prox-mesh/internal/cli"
	"github.com/proxoffensive/prox-mesh/internal/executor"
)

func main() {
	// Signals cancel the context instead of killing prox-mesh, so the running
	// tool is stopped and 130 (SIGINT) or 143 (SIGTERM) is reported.
	ctx, cancel := context.WithCancelCause(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-sigs; ok {
			cancel(executor.CancelCause(sig))
		}
	}()

	code := cli.Execute(ctx)
	signal.Stop(sigs)
	cancel(nil)
	os.Exit(code)
}
