// Package tinygo implements ble.Transport on top of tinygo.org/x/bluetooth, which talks to
// BlueZ over D-Bus on Linux and to CoreBluetooth on macOS.
package tinygo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"
)

// Transport is safe for one scan at a time; the underlying adapter only supports a single
// active scan.
type Transport struct {
	adapter *bluetooth.Adapter

	// service UUIDs reported in advertisements. The library only exposes membership
	// checks, so the set of interesting UUIDs is fixed upfront.
	watch []watchedUUID

	scanMu sync.Mutex
}

type watchedUUID struct {
	ble  ble.UUID
	tiny bluetooth.UUID
}

var _ ble.Transport = (*Transport)(nil)

// New enables the adapter with the given id (empty for the default one).
func New(id string, watch ...ble.UUID) (*Transport, error) {
	adapter := bluetooth.DefaultAdapter

	if id != "" {
		adapter = bluetooth.NewAdapter(id)
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: failed to enable adapter: %w", err)
	}

	t := &Transport{adapter: adapter}

	for _, u := range watch {
		tu, err := bluetooth.ParseUUID(u.String())

		if err != nil {
			return nil, fmt.Errorf("ble: invalid service UUID %v: %w", u, err)
		}

		t.watch = append(t.watch, watchedUUID{ble: u, tiny: tu})
	}

	return t, nil
}

func (t *Transport) Scan(ctx context.Context, onAdvertisement func(device.Advertisement)) error {
	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			if err := t.adapter.StopScan(); err != nil {
				log.Warn().Err(err).Msg("ble: failed to stop scan")
			}
		case <-done:
		}
	}()

	err := t.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ctx.Err() != nil {
			return
		}

		adv := device.Advertisement{
			Identity:    device.NewIdentity(result.Address.String()),
			Name:        result.LocalName(),
			RSSI:        int(result.RSSI),
			Connectable: true,
		}

		for _, w := range t.watch {
			if result.HasServiceUUID(w.tiny) {
				adv.Services = append(adv.Services, w.ble)
			}
		}

		onAdvertisement(adv)
	})

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ble: scan: %w", err)
	}

	return nil
}

func (t *Transport) Connect(ctx context.Context, id device.Identity) (ble.Link, error) {
	addr, err := parseAddress(id)

	if err != nil {
		return nil, err
	}

	// the library does not take a context: connect aside and drop the device if the
	// caller gave up in the meantime.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}

	ch := make(chan connectResult, 1)

	go func() {
		params := bluetooth.ConnectionParams{}

		if deadline, ok := ctx.Deadline(); ok {
			params.ConnectionTimeout = bluetooth.NewDuration(time.Until(deadline))
		}

		d, err := t.adapter.Connect(addr, params)

		if err == nil && ctx.Err() != nil {
			if err := d.Disconnect(); err != nil {
				log.Warn().Err(err).Stringer("Addr", id).Msg("ble: failed to drop late connection")
			}
		}

		ch <- connectResult{d, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ble: connect to %v: %w", id, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ble: connect to %v: %w", id, r.err)
		}

		log.Debug().Stringer("Addr", id).Msg("ble: successfully opened new connection to device")

		return &link{
			id:     id,
			device: r.device,
			chars:  make(map[*ble.Characteristic]bluetooth.DeviceCharacteristic),
		}, nil
	}
}
