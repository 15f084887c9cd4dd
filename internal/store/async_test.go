package store

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestWriterRunsJobsInOrder(t *testing.T) {
	w := NewWriter(log.New(io.Discard))

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		w.Enqueue("job", func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	w.Close()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWriterRetriesOnce(t *testing.T) {
	w := NewWriter(log.New(io.Discard))

	var calls atomic.Int32
	w.Enqueue("flaky", func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})
	w.Close()

	assert.Equal(t, int32(2), calls.Load())
}

func TestWriterGivesUpAfterSecondFailure(t *testing.T) {
	w := NewWriter(log.New(io.Discard))

	var calls atomic.Int32
	w.Enqueue("broken", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("permanent")
	})
	// A later job still runs
	var ran atomic.Bool
	w.Enqueue("fine", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	w.Close()

	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, ran.Load())
}
