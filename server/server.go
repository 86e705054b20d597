// Package server provides the process lifecycle glue for a
// baseplate-instrumented service: a signal.NotifyContext-based shutdown on
// SIGINT/SIGTERM/SIGUSR2, plus an all-goroutine stack dump on SIGUSR1 as a
// debug aid (spec §6.5), matching the teacher's own `cmd/main.go` signal
// handling idiom (there triggered by a `-stack` flag instead of a signal;
// generalized here into the signal the spec requires).
package server

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/reddit/baseplate.go/internal/log"
)

// Run installs signal handling and calls fn with a context canceled on
// SIGINT, SIGTERM, or SIGUSR2. SIGUSR1 dumps every goroutine's stack trace
// to the log as a debug aid and does not affect the context. Run returns
// fn's error once fn returns.
func Run(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer stop()

	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	go func() {
		for range dump {
			dumpStacks()
		}
	}()
	defer signal.Stop(dump)

	return fn(ctx)
}

// dumpStacks writes every goroutine's stack trace to the log, growing its
// scratch buffer until the dump fits, matching the teacher's own
// `-stack`-triggered diagnostic.
func dumpStacks() {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			log.Info("server: SIGUSR1 stack dump:\n%s", buf[:n])
			return
		}
		buf = make([]byte, 2*len(buf))
	}
}
