// signals.go - termination signal handling
//
// Termination signals only flip the shutdown flag; they never
// allocate, log, or touch the emulators. The event loop observes the
// flag at the top of its next iteration once the blocking poll
// returns EINTR.

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// installTerminationHandlers reaches the context through the global
// atomic pointer rather than a captured reference, so the handler
// stays valid whichever context is current when the signal lands.
func installTerminationHandlers() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-ch
		if ctx := globalCtx.Load(); ctx != nil {
			ctx.RequestShutdown()
		}
	}()
}
