package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled on SIGINT or SIGTERM, so a long
// batch can stop between rows instead of being killed mid-write.
func SignalContext(parent context.Context, logger *Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Warn("Received %v, cancelling run...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
