package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Writer runs store writes on a background goroutine so a slow database can
// never stall a room's event loop. Jobs from one room keep their submission
// order. Each job is retried once before being dropped; credit writes are
// idempotent per hand, so a retry can never double-pay.
type Writer struct {
	logger  *log.Logger
	jobs    chan job
	done    chan struct{}
	timeout time.Duration
}

type job struct {
	name string
	fn   func(ctx context.Context) error
}

// NewWriter starts a write worker. Close it to drain the queue.
func NewWriter(logger *log.Logger) *Writer {
	w := &Writer{
		logger:  logger.WithPrefix("store-writer"),
		jobs:    make(chan job, 256),
		done:    make(chan struct{}),
		timeout: 10 * time.Second,
	}
	go w.run()
	return w
}

// Enqueue schedules a write. If the queue is full the job is dropped with a
// diagnostic rather than blocking the caller.
func (w *Writer) Enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case w.jobs <- job{name: name, fn: fn}:
	default:
		w.logger.Error("write queue full, dropping job", "job", name)
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for j := range w.jobs {
		w.exec(j)
	}
}

func (w *Writer) exec(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := j.fn(ctx)
	if err == nil {
		return
	}
	w.logger.Warn("store write failed, retrying", "job", j.name, "error", err)
	if err := j.fn(ctx); err != nil {
		w.logger.Error("store write failed", "job", j.name, "error", err)
	}
}

// Close drains outstanding jobs and stops the worker.
func (w *Writer) Close() {
	close(w.jobs)
	<-w.done
}
