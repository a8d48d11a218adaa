//go:build linux

package ble

import (
  "context"
  "errors"
  "fmt"

  "github.com/go-ble/ble"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-nordic-uart/device"
  "github.com/rs/zerolog/log"
)

var advertisementsCounter = prometheus.NewCounter(prometheus.CounterOpts{
  Name: "nordic_uart_ble_advertisements_total",
})

// Scan performs an active or passive scan and hands every advertisement to onAdvertisement,
// duplicates included, until ctx is done.
func (h *Handle) Scan(ctx context.Context, onAdvertisement func(device.Advertisement)) error {
  err := h.dev.Scan(ctx, true, func(a ble.Advertisement) {
    // the BLE lib could send an advertisement even after `Scan()` returns.
    if ctx.Err() != nil {
      return
    }

    advertisementsCounter.Inc()

    log.Trace().
      Str("Addr", a.Addr().String()).
      Str("Name", a.LocalName()).
      Int("RSSI", a.RSSI()).
      Msg("ble: received advertisement")

    onAdvertisement(device.FromBleAdvertisement(a))
  })

  // swallow context errors which are caused by the caller ending the scan.
  if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
    return nil
  }

  if err != nil {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}
