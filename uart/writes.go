package uart

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/robertof/go-nordic-uart/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

// PendingWrite is the handle of a write started by ScheduleWrite.
type PendingWrite struct {
	data   []byte
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}
	err  error
}

func (w *PendingWrite) finish(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// Done is closed once the write completed, failed or got cancelled.
func (w *PendingWrite) Done() <-chan struct{} {
	return w.done
}

// Err returns the outcome of the write, nil while it is still in flight. Cancelled writes
// report ErrWriteCancelled.
func (w *PendingWrite) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write is done or ctx expires.
func (w *PendingWrite) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ScheduleWrite starts a write in the background and returns immediately. The write is
// tracked until it completes; Disconnect cancels it if it is still in flight.
//
// Scheduled writes run concurrently and no ordering is guaranteed between them. Callers
// that care about ordering must wait on the previous PendingWrite before scheduling the
// next one.
func (c *Client) ScheduleWrite(data []byte) *PendingWrite {
	ctx, cancel := context.WithCancel(context.Background())

	w := &PendingWrite{
		data:   bytes.Clone(data),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.writesMu.Lock()
	c.pending[w] = struct{}{}
	c.writesMu.Unlock()

	metrics.PendingWrites.Inc()

	go func() {
		err := c.Write(ctx, w.data)

		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Stringer("Device", c.Target()).Msg("uart: scheduled write failed")
		}

		c.complete(w, err)
	}()

	return w
}

func (c *Client) complete(w *PendingWrite, err error) {
	c.writesMu.Lock()
	_, tracked := c.pending[w]
	delete(c.pending, w)
	c.writesMu.Unlock()

	w.cancel()

	if !tracked {
		// already cancelled by Disconnect.
		return
	}

	metrics.PendingWrites.Dec()
	w.finish(err)
}

func (c *Client) cancelPendingWrites() int {
	c.writesMu.Lock()
	pending := c.pending
	c.pending = make(map[*PendingWrite]struct{})
	c.writesMu.Unlock()

	for w := range pending {
		w.cancel()
		w.finish(ErrWriteCancelled)

		metrics.PendingWrites.Dec()
		metrics.CancelledWrites.Inc()
	}

	return len(pending)
}

// PendingWrites returns the number of scheduled writes still in flight.
func (c *Client) PendingWrites() int {
	c.writesMu.Lock()
	defer c.writesMu.Unlock()

	return len(c.pending)
}

// Drain waits for every write scheduled so far to finish. Writes scheduled while draining
// are not waited for.
func (c *Client) Drain(ctx context.Context) error {
	c.writesMu.Lock()
	pending := maps.Keys(c.pending)
	c.writesMu.Unlock()

	for _, w := range pending {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("uart: %d scheduled writes still pending: %w", c.PendingWrites(), ctx.Err())
		}
	}

	return nil
}
