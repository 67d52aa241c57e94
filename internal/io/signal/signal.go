package signal

import (
	"context"
	"os"
	gosignal "os/signal"
	"syscall"

	"github.com/mimecast/zeekagent/internal/io/dlog"
)

// InterruptContext returns a child context which is cancelled once the
// process receives SIGINT, SIGTERM, SIGHUP or SIGQUIT. A second interrupt
// exits immediately.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 10)
	gosignal.Notify(sigCh, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer gosignal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			dlog.Common.Info("Received signal, shutting down", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			dlog.Common.Warn("Received second signal, exiting now")
			os.Exit(1)
		case <-parent.Done():
		}
	}()
	return ctx, cancel
}
