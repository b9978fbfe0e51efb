package gogine

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptSource blocks until an external interrupt arrives. It returns nil
// on interrupt and ctx.Err() once ctx is done. Any other error is a listener
// failure: the runner logs it and keeps waiting on the shutdown signal.
type InterruptSource func(ctx context.Context) error

// OSInterrupt waits for SIGINT or SIGTERM
func OSInterrupt(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
