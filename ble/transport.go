package ble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/robertof/go-nordic-uart/device"
)

type Service = ble.Service
type Characteristic = ble.Characteristic
type UUID = ble.UUID

func MustParseUUID(s string) UUID {
  return ble.MustParse(s)
}

func UUID16(i uint16) UUID {
  return ble.UUID16(i)
}

// WrapContextWithSigHandler cancels the returned context on SIGINT or SIGTERM.
func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

//go:generate mockgen -destination=../mocks/transport.go -package=mocks -mock_names=Transport=Transport,Link=Link . Transport,Link

// Transport is the radio: it scans for advertisements and opens links to peripherals.
type Transport interface {
  // Connect opens a link to the peripheral. Must honour ctx cancellation.
  Connect(ctx context.Context, id device.Identity) (Link, error)

  // Scan delivers advertisements to onAdvertisement until ctx is done. Returns nil when
  // the scan was stopped through ctx. May be called again after it returns.
  Scan(ctx context.Context, onAdvertisement func(device.Advertisement)) error
}

// Link is an established connection to a single peripheral.
type Link interface {
  DiscoverServices(ctx context.Context) ([]*Service, error)
  ReadCharacteristic(ctx context.Context, c *Characteristic) ([]byte, error)
  WriteCharacteristic(ctx context.Context, c *Characteristic, data []byte, ack bool) error

  // Disconnect closes the link. Calling it on a link that is already gone is harmless.
  Disconnect() error
}
