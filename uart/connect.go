package uart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/metrics"
	"github.com/robertof/go-nordic-uart/tracing"
	"github.com/rs/zerolog/log"
)

type ConnectOptions struct {
	// Total number of connection attempts. Values < 1 mean DefaultRetries.
	Retries int
	// Bounds each attempt (connection and service discovery). Values <= 0 mean
	// DefaultTimeoutPerAttempt.
	TimeoutPerAttempt time.Duration
	// Fixed pause between attempts. Zero or negative disables it.
	Backoff time.Duration
}

func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Retries:           DefaultRetries,
		TimeoutPerAttempt: DefaultTimeoutPerAttempt,
		Backoff:           DefaultBackoff,
	}
}

func (o ConnectOptions) normalize() ConnectOptions {
	if o.Retries < 1 {
		o.Retries = DefaultRetries
	}

	if o.TimeoutPerAttempt <= 0 {
		o.TimeoutPerAttempt = DefaultTimeoutPerAttempt
	}

	if o.Backoff < 0 {
		o.Backoff = 0
	}

	return o
}

// Connect is ConnectWithOptions with c.ConnectOptions.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithOptions(ctx, c.ConnectOptions)
}

// ConnectWithOptions connects to the bound device and verifies it exposes the UART service.
//
// Failed connection attempts (including timeouts and service discovery errors) are retried
// up to opts.Retries times in total; after that the error wraps ErrConnectionExhausted.
// Verification failures are returned right away. Either way the session ends up in
// StateFailed. Connecting an already connected session is a no-op.
func (c *Client) ConnectWithOptions(ctx context.Context, opts ConnectOptions) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	target := c.Target()

	if target == "" {
		return ErrNoDevice
	}

	if c.State() == StateConnected {
		return nil
	}

	opts = opts.normalize()

	log.Debug().
		Stringer("Device", target).
		Int("Retries", opts.Retries).
		Dur("TimeoutPerAttemptSec", opts.TimeoutPerAttempt).
		Dur("BackoffSec", opts.Backoff).
		Msg("uart: connecting to device")

	link, services, err := c.establish(ctx, target, opts)

	if err != nil {
		c.setState(StateFailed)
		return err
	}

	endpoints, err := Verify(services)

	if err != nil {
		metrics.VerificationFailures.Inc()
		ble.DisconnectQuietly(link, target)
		c.setState(StateFailed)

		log.Warn().Err(err).Stringer("Device", target).Msg("uart: device failed verification")

		return fmt.Errorf("uart: verifying %v: %w", target, err)
	}

	c.mu.Lock()
	c.link = link
	c.endpoints = endpoints
	c.mu.Unlock()
	c.setState(StateConnected)

	log.Info().
		Stringer("Device", target).
		Stringer("Service", endpoints.Service().UUID).
		Msg("uart: UART service connected")

	return nil
}

func (c *Client) establish(
	ctx context.Context,
	target device.Identity,
	opts ConnectOptions,
) (ble.Link, []*ble.Service, error) {
	var lastErr error

	for attempt := 1; attempt <= opts.Retries; attempt++ {
		if attempt > 1 && opts.Backoff > 0 {
			log.Trace().
				Dur("Backoff", opts.Backoff).
				Msg("uart: backing off before attempting retry")

			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("uart: connecting to %v: %w", target, ctx.Err())
			case <-time.After(opts.Backoff):
			}
		}

		c.setState(StateConnecting)

		link, services, err := c.attempt(ctx, target, attempt, opts.TimeoutPerAttempt)

		if err == nil {
			metrics.ConnectAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
			return link, services, nil
		}

		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) {
			metrics.ConnectAttempts.WithLabelValues(metrics.ResultTimeout).Inc()
		} else {
			metrics.ConnectAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		}

		// the caller gave up, no point in retrying.
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("uart: connecting to %v: %w", target, ctx.Err())
		}

		log.Warn().
			Err(err).
			Stringer("Device", target).
			Int("Attempt", attempt).
			Int("RetriesLeft", opts.Retries-attempt).
			Msg("uart: connection attempt failed")
	}

	return nil, nil, fmt.Errorf("%w: %v after %d attempts: %w",
		ErrConnectionExhausted, target, opts.Retries, lastErr)
}

func (c *Client) attempt(
	ctx context.Context,
	target device.Identity,
	n int,
	timeout time.Duration,
) (_ ble.Link, _ []*ble.Service, err error) {
	ctx, span := tracing.StartSpan(ctx, "uart.connect_attempt", tracing.Device(target), tracing.Attempt(n))
	defer func() { tracing.End(span, err) }()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	link, err := ble.ConnectWithin(attemptCtx, c.transport, target)

	if err != nil {
		return nil, nil, err
	}

	c.setState(StateVerifying)

	services, err := ble.DiscoverServicesWithin(attemptCtx, link)

	if err != nil {
		ble.DisconnectQuietly(link, target)
		return nil, nil, fmt.Errorf("uart: discovering services of %v: %w", target, err)
	}

	return link, services, nil
}
