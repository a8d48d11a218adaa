//go:build !linux

package ble

import (
  "context"
  "errors"
  "net"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-nordic-uart/device"
)

var ErrUnsupported = errors.New("ble: the HCI backend is only available on Linux")

// Handle is unusable outside of Linux; use the tinygo backend instead.
type Handle struct{}

var _ Transport = (*Handle)(nil)

func RegisterMetrics(reg prometheus.Registerer) {}

func Init(deviceId int, flags Flags) (*Handle, error) {
  return nil, ErrUnsupported
}

func InitWithConnParams(deviceId int, connParams ConnParams, flags Flags) (*Handle, error) {
  return nil, ErrUnsupported
}

func (h *Handle) SetAllowListedAddresses(a []net.HardwareAddr) error {
  return ErrUnsupported
}

func (h *Handle) Connect(ctx context.Context, id device.Identity) (Link, error) {
  return nil, ErrUnsupported
}

func (h *Handle) Scan(ctx context.Context, onAdvertisement func(device.Advertisement)) error {
  return ErrUnsupported
}

func (h *Handle) Stop() {}
