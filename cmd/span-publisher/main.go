// Command span-publisher is the sidecar process implementing C8: it reads
// serialized span records off a POSIX message queue and ships them to a
// Zipkin-compatible collector in batches. Flag parsing and the
// SIGINT/SIGTERM drain-then-exit sequence follow the teacher's cmd/main.go
// idiom of a flat stdlib flag.FlagSet plus a signal.NotifyContext shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/mqueue"
	"github.com/reddit/baseplate.go/publisher"
)

func main() {
	var (
		queueName      = flag.String("queue-name", "/baseplate-spans", "name of the POSIX message queue to drain")
		maxMessages    = flag.Int("queue-max-messages", 10000, "maximum unread messages the queue holds")
		maxMessageSize = flag.Int("queue-max-message-size", 65536, "maximum size in bytes of one queued message")
		collectorURL   = flag.String("collector-url", "", "Zipkin-compatible collector URL to POST batches to")
		maxBatchSize   = flag.Int("max-batch-size", 100, "maximum spans per published batch")
		maxBatchAge    = flag.Duration("max-batch-age", time.Second, "maximum time a partial batch is held before flushing")
		logLevel       = flag.String("log-level", "info", "minimum log level: debug, info, warn, error")
	)
	flag.Parse()

	switch *logLevel {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}

	if *collectorURL == "" {
		log.Error("span-publisher: -collector-url is required")
		os.Exit(2)
	}

	p, err := publisher.New(publisher.Config{
		Queue: mqueue.Config{
			Name:           *queueName,
			MaxMessages:    *maxMessages,
			MaxMessageSize: *maxMessageSize,
		},
		CollectorURL: *collectorURL,
		MaxBatchSize: *maxBatchSize,
		MaxBatchAge:  *maxBatchAge,
	})
	if err != nil {
		log.Error("span-publisher: startup failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("span-publisher: draining queue %q to %q", *queueName, *collectorURL)
	if err := p.Run(ctx); err != nil {
		log.Error("span-publisher: exited with error: %v", err)
		os.Exit(1)
	}
	log.Flush()
}
