package server_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/server"
)

func TestRunCancelsContextOnSIGTERM(t *testing.T) {
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- server.Run(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	assert.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("server.Run did not return after SIGTERM")
	}
}

func TestRunDumpsStacksOnSIGUSR1WithoutExiting(t *testing.T) {
	rec := &log.RecordLogger{}
	defer func(old log.Logger) { log.UseLogger(old) }(rec)
	log.UseLogger(rec)
	log.SetLevel(log.LevelInfo)

	started := make(chan struct{})
	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- server.Run(func(ctx context.Context) error {
			close(started)
			<-stop
			return nil
		})
	}()

	<-started
	assert.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	time.Sleep(50 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server.Run did not return")
	}

	var sawDump bool
	for _, l := range rec.Logs() {
		if len(l) > 0 {
			sawDump = true
		}
	}
	assert.True(t, sawDump)
}
