// Package scanner discovers peripherals exposing the Nordic UART service, either by looking
// at their advertisements or by connecting to them and enumerating their services.
package scanner

import (
  "time"
)

const (
  DefaultTimeout = 5 * time.Second
  DefaultScanTime = 30 * time.Second
  DefaultPollInterval = 100 * time.Millisecond
  DefaultProbeTimeout = 5 * time.Second
  DefaultMaxConcurrentProbes = 1

  // probes waiting for a worker. Advertisements arriving while the queue is full are
  // picked up again the next time the device advertises.
  probeQueueSize = 64
)

type Options struct {
  // Give up this long after the last new discovery.
  Timeout time.Duration
  // Hard ceiling for the whole scan, regardless of discoveries.
  ScanTime time.Duration
  PollInterval time.Duration

  // Only used by ConnectingScanner.
  ProbeTimeout time.Duration
  MaxConcurrentProbes int
}

func DefaultOptions() Options {
  return Options{
    Timeout: DefaultTimeout,
    ScanTime: DefaultScanTime,
    PollInterval: DefaultPollInterval,
    ProbeTimeout: DefaultProbeTimeout,
    MaxConcurrentProbes: DefaultMaxConcurrentProbes,
  }
}

// normalize replaces unset values with their defaults.
func (o Options) normalize() Options {
  d := DefaultOptions()

  if o.Timeout <= 0 {
    o.Timeout = d.Timeout
  }

  if o.ScanTime <= 0 {
    o.ScanTime = d.ScanTime
  }

  if o.PollInterval <= 0 {
    o.PollInterval = d.PollInterval
  }

  if o.ProbeTimeout <= 0 {
    o.ProbeTimeout = d.ProbeTimeout
  }

  if o.MaxConcurrentProbes < 1 {
    o.MaxConcurrentProbes = d.MaxConcurrentProbes
  }

  return o
}
