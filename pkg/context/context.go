package context

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/assetnote/kitehttp/pkg/log"
)

var (
	root     context.Context
	stop     context.CancelFunc
	initOnce sync.Once
)

// AddInterruptCancellation cancels ctx on the first SIGINT or SIGTERM. A second signal exits the process
func AddInterruptCancellation(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		received := 0
		for {
			select {
			case sig := <-sigs:
				received++
				if received > 1 {
					log.Info().Str("signal", sig.String()).Msg("second interrupt received, exiting")
					os.Exit(1)
				}
				log.Info().Str("signal", sig.String()).Msg("interrupt received, stopping in flight requests")
				cancel()
			case <-ctx.Done():
				// keep listening so a second signal still forces the exit
				<-sigs
				log.Info().Msg("interrupt received after shutdown, exiting")
				os.Exit(1)
			}
		}
	}()
}

func initRoot() {
	initOnce.Do(func() {
		root, stop = context.WithCancel(context.Background())
		AddInterruptCancellation(root, stop)
	})
}

// Context returns the process context, installing the interrupt handler on first use
func Context() context.Context {
	initRoot()
	return root
}

// WithDeadline derives a context from parent that is also cancelled after d. A nil parent uses Context.
// A zero d only inherits cancellation
func WithDeadline(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = Context()
	}
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// Cancel cancels the process context
func Cancel() {
	initRoot()
	stop()
}
