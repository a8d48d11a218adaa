package tinygo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"tinygo.org/x/bluetooth"
)

// maximum ATT attribute value length.
const maxValueLength = 512

// ErrUnsupported is returned for GATT operations the platform backend does not implement.
var ErrUnsupported = errors.New("ble: operation not supported by this platform")

type link struct {
	id     device.Identity
	device bluetooth.Device

	mu    sync.Mutex
	chars map[*ble.Characteristic]bluetooth.DeviceCharacteristic
	gone  bool
}

func await[T any](ctx context.Context, op func() (T, error)) (res T, err error) {
	if err := ctx.Err(); err != nil {
		return res, err
	}

	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)

	go func() {
		v, err := op()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return res, ctx.Err()
	case r := <-ch:
		return r.val, r.err
	}
}

// DiscoverServices maps the GATT database onto go-ble types so callers stay backend
// agnostic. Characteristic pointers returned here are the keys for reads and writes.
func (l *link) DiscoverServices(ctx context.Context) ([]*ble.Service, error) {
	return await(ctx, func() ([]*ble.Service, error) {
		svcs, err := l.device.DiscoverServices(nil)

		if err != nil {
			return nil, fmt.Errorf("ble: failed to enumerate services of %v: %w", l.id, err)
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		out := make([]*ble.Service, 0, len(svcs))

		for _, svc := range svcs {
			s := &ble.Service{UUID: ble.MustParseUUID(svc.UUID().String())}

			chars, err := svc.DiscoverCharacteristics(nil)

			if err != nil {
				return nil, fmt.Errorf("ble: failed to enumerate characteristics of %v: %w", s.UUID, err)
			}

			for _, char := range chars {
				c := &ble.Characteristic{UUID: ble.MustParseUUID(char.UUID().String())}
				l.chars[c] = char
				s.Characteristics = append(s.Characteristics, c)
			}

			out = append(out, s)
		}

		return out, nil
	})
}

func (l *link) lookup(c *ble.Characteristic) (bluetooth.DeviceCharacteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	char, ok := l.chars[c]

	if !ok {
		return char, fmt.Errorf("ble: characteristic %v was not discovered on this link", c.UUID)
	}

	return char, nil
}

func (l *link) ReadCharacteristic(ctx context.Context, c *ble.Characteristic) ([]byte, error) {
	char, err := l.lookup(c)

	if err != nil {
		return nil, err
	}

	return await(ctx, func() ([]byte, error) {
		return readCharacteristic(char)
	})
}

func (l *link) WriteCharacteristic(ctx context.Context, c *ble.Characteristic, data []byte, ack bool) error {
	char, err := l.lookup(c)

	if err != nil {
		return err
	}

	_, err = await(ctx, func() (int, error) {
		if ack {
			return writeCharacteristic(char, data)
		}

		return char.WriteWithoutResponse(data)
	})

	return err
}

func (l *link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.gone {
		return nil
	}

	l.gone = true

	return l.device.Disconnect()
}
