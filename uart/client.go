package uart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client is a UART session with a single peripheral. It owns the link once connected.
//
// Read, Write and ScheduleWrite are safe for concurrent use. Connect and Disconnect are
// serialized against each other.
type Client struct {
	// Used by Connect and Do.
	ConnectOptions ConnectOptions

	// How long Do waits for scheduled writes before disconnecting anyway.
	DrainTimeout time.Duration

	// Optional. Paces writes for peripherals that drop data when flooded.
	WriteLimiter *rate.Limiter

	transport ble.Transport

	// held for the whole duration of Connect and Disconnect.
	transitionMu sync.Mutex

	mu        sync.Mutex
	target    device.Identity
	state     State
	link      ble.Link
	endpoints Endpoints

	writesMu sync.Mutex
	pending  map[*PendingWrite]struct{}
}

// NewClient creates a disconnected session. target may be empty and bound later with Bind
// or DiscoverSupported.
func NewClient(t ble.Transport, target device.Identity) *Client {
	return &Client{
		ConnectOptions: DefaultConnectOptions(),
		DrainTimeout:   DefaultDrainTimeout,
		transport:      t,
		target:         target,
		pending:        make(map[*PendingWrite]struct{}),
	}
}

// Bind sets the device used by the next Connect.
func (c *Client) Bind(id device.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = id
}

func (c *Client) Target() device.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.target
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	target := c.target
	c.mu.Unlock()

	if prev != s {
		log.Trace().
			Stringer("Device", target).
			Stringer("From", prev).
			Stringer("To", s).
			Msg("uart: state transition")
	}
}

func (c *Client) session() (ble.Link, Endpoints, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.link == nil || !c.endpoints.valid() {
		return nil, Endpoints{}, ErrNotConnected
	}

	return c.link, c.endpoints, nil
}

// Read performs a single read of the TX characteristic and returns the raw value. No
// framing is applied.
func (c *Client) Read(ctx context.Context) ([]byte, error) {
	link, e, err := c.session()

	if err != nil {
		return nil, err
	}

	data, err := link.ReadCharacteristic(ctx, e.TX())

	if err != nil {
		return nil, fmt.Errorf("uart: read from %v: %w", c.Target(), err)
	}

	metrics.BytesRead.Add(float64(len(data)))

	return data, nil
}

// Write performs a single write to the RX characteristic without asking for an
// acknowledgment: delivery is best-effort.
func (c *Client) Write(ctx context.Context, data []byte) error {
	link, e, err := c.session()

	if err != nil {
		return err
	}

	if c.WriteLimiter != nil {
		if err := c.WriteLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("uart: write to %v: %w", c.Target(), err)
		}
	}

	if err := link.WriteCharacteristic(ctx, e.RX(), data, false); err != nil {
		return fmt.Errorf("uart: write to %v: %w", c.Target(), err)
	}

	metrics.BytesWritten.Add(float64(len(data)))

	return nil
}

// Disconnect cancels every scheduled write that has not completed yet, then closes the
// link. Safe to call at any time, any number of times.
func (c *Client) Disconnect() {
	if n := c.cancelPendingWrites(); n > 0 {
		log.Debug().
			Stringer("Device", c.Target()).
			Int("Cancelled", n).
			Msg("uart: cancelled outstanding writes")
	}

	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	c.mu.Lock()
	link := c.link
	target := c.target
	c.link = nil
	c.endpoints = Endpoints{}
	c.state = StateDisconnected
	c.mu.Unlock()

	if link == nil {
		return
	}

	if err := link.Disconnect(); err != nil {
		log.Debug().Err(err).Stringer("Device", target).Msg("uart: error while disconnecting, ignoring")
	}

	log.Info().Stringer("Device", target).Msg("uart: disconnected")
}

// RegisterMetrics exports the session state through reg.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) {
	names := make([]string, len(allStates))

	for i, s := range allStates {
		names[i] = s.String()
	}

	metrics.RegisterSessionCollector(func() (string, string, []string) {
		c.mu.Lock()
		defer c.mu.Unlock()

		return c.target.String(), c.state.String(), names
	}, reg)
}
