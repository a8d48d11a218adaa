package scanner

import (
  "context"

  "github.com/robertof/go-nordic-uart/ble"
  "github.com/robertof/go-nordic-uart/device"
  "github.com/robertof/go-nordic-uart/metrics"
  "github.com/robertof/go-nordic-uart/uart"
  "github.com/rs/zerolog/log"
)

// AdvertisementScanner finds devices that list the UART service in their advertisements.
// It never connects to anything.
type AdvertisementScanner struct {
  results

  transport ble.Transport
  opts Options
}

func NewAdvertisementScanner(t ble.Transport, opts Options) *AdvertisementScanner {
  return &AdvertisementScanner{
    transport: t,
    opts: opts.normalize(),
  }
}

// Scan blocks until the scan is over. Finding nothing is not an error. Discoveries
// accumulate across calls.
func (s *AdvertisementScanner) Scan(ctx context.Context) error {
  return runScan(ctx, s.transport, s.opts, s.len, func(a device.Advertisement) {
    if !a.HasService(uart.ServiceUUID) {
      return
    }

    if s.add(Discovery{Advertisement: a}) {
      metrics.DevicesDiscovered.WithLabelValues(metrics.MethodAdvertisement).Inc()

      log.Info().
        Stringer("Device", a.Identity).
        Str("Name", a.Name).
        Int("RSSI", a.RSSI).
        Msg("scanner: found UART device")
    }
  })
}
