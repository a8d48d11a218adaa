package scanner

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/robertof/go-nordic-uart/ble"
  "github.com/robertof/go-nordic-uart/device"
  "github.com/rs/zerolog/log"
)

// runScan subscribes to advertisements and polls size until either no new device showed up
// for opts.Timeout or opts.ScanTime elapsed. The subscription is restarted if the transport
// ends it early without an error.
//
// Each new device pushes the deadline to now + opts.Timeout, not now + opts.ScanTime, so an
// idle scan still ends Timeout after the last discovery. opts.ScanTime from the start of the
// scan caps every extension.
func runScan(
  ctx context.Context,
  transport ble.Transport,
  opts Options,
  size func() int,
  onAdvertisement func(device.Advertisement),
) error {
  scanCtx, cancel := context.WithCancel(ctx)
  defer cancel()

  scanErr := make(chan error, 1)
  scanning := false

  startScan := func() {
    scanning = true

    go func() {
      scanErr <- transport.Scan(scanCtx, onAdvertisement)
    }()
  }

  start := time.Now()
  scanStop := start.Add(opts.ScanTime)
  timeoutStop := start.Add(opts.Timeout)
  seen := size()

  ticker := time.NewTicker(opts.PollInterval)
  defer ticker.Stop()

  log.Debug().
    Dur("Timeout", opts.Timeout).
    Dur("ScanTime", opts.ScanTime).
    Msg("scanner: scan started")

  startScan()

  var err error

loop:
  for {
    select {
    case <-ctx.Done():
      err = ctx.Err()
      break loop
    case e := <-scanErr:
      scanning = false

      if e != nil {
        err = fmt.Errorf("scanner: scan failed: %w", e)
        break loop
      }

      log.Trace().Msg("scanner: transport ended the scan early, restarting on next tick")
    case now := <-ticker.C:
      if n := size(); n > seen {
        log.Trace().
          Int("Devices", n).
          Int("New", n-seen).
          Msg("scanner: new devices found, extending timeout")

        seen = n
        timeoutStop = now.Add(opts.Timeout)
      }

      if !now.Before(timeoutStop) || !now.Before(scanStop) {
        break loop
      }

      if !scanning {
        startScan()
      }
    }
  }

  cancel()

  if scanning {
    // the transport returns nil when stopped through its context.
    if e := <-scanErr; e != nil && err == nil && !errors.Is(e, context.Canceled) {
      err = fmt.Errorf("scanner: scan failed: %w", e)
    }
  }

  log.Debug().
    Int("Devices", size()).
    Dur("Elapsed", time.Since(start)).
    Msg("scanner: scan finished")

  return err
}
