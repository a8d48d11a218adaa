package uart

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Do connects, runs fn and then tears the session down: scheduled writes get up to
// DrainTimeout to complete before the link is closed, whatever fn returned.
//
// A drain timeout is reported only when fn itself succeeded.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context, c *Client) error) (err error) {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	defer func() {
		timeout := c.DrainTimeout

		if timeout <= 0 {
			timeout = DefaultDrainTimeout
		}

		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		start := time.Now()
		drainErr := c.Drain(drainCtx)

		c.Disconnect()

		if drainErr != nil {
			log.Warn().
				Err(drainErr).
				Stringer("Device", c.Target()).
				Dur("Waited", time.Since(start)).
				Msg("uart: gave up waiting for scheduled writes")

			if err == nil {
				err = drainErr
			}
		}
	}()

	return fn(ctx, c)
}
