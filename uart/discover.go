package uart

import (
	"context"
	"fmt"
	"sync"

	"github.com/robertof/go-nordic-uart/device"
	"github.com/rs/zerolog/log"
)

// DiscoverSupported scans until a device whose advertised name starts with one of models
// shows up, then binds the session to it. With no models, device.SupportedModels is used.
func (c *Client) DiscoverSupported(ctx context.Context, models []string) (device.Advertisement, error) {
	if len(models) == 0 {
		models = device.SupportedModels
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		found *device.Advertisement
	)

	err := c.transport.Scan(scanCtx, func(a device.Advertisement) {
		if !device.IsSupportedModel(a.Name, models) {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		if found == nil {
			found = &a
			cancel()
		}
	})

	mu.Lock()
	defer mu.Unlock()

	if found != nil {
		c.Bind(found.Identity)

		log.Info().
			Stringer("Device", found.Identity).
			Str("Name", found.Name).
			Msg("uart: found supported device")

		return *found, nil
	}

	if err != nil {
		return device.Advertisement{}, fmt.Errorf("uart: scanning for supported devices: %w", err)
	}

	if ctx.Err() != nil {
		return device.Advertisement{}, fmt.Errorf("%w: %w", ErrNoDevice, ctx.Err())
	}

	return device.Advertisement{}, ErrNoDevice
}
