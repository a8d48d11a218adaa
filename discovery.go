package main

import (
	"context"
	"errors"
	"slices"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/scanner"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

type deviceScanner interface {
  Scan(ctx context.Context) error
  Devices() map[device.Identity]scanner.Discovery
}

func newScanner(cfg config, transport ble.Transport) deviceScanner {
  if cfg.Scan.Probe {
    return scanner.NewConnectingScanner(transport, cfg.Scan.Options())
  }

  return scanner.NewAdvertisementScanner(transport, cfg.Scan.Options())
}

func doDeviceDiscovery(ctx context.Context, cfg config, transport ble.Transport) {
  log.Info().
    Bool("Probe", cfg.Scan.Probe).
    Dur("TimeoutSec", cfg.Scan.Timeout).
    Dur("ScanTimeSec", cfg.Scan.ScanTime).
    Msg("Starting in device discovery mode")

  s := newScanner(cfg, transport)
  err := s.Scan(ctx)

  if err != nil && !errors.Is(err, context.Canceled) {
    log.Fatal().Err(err).Msg("Device discovery failed")
  }

  devices := s.Devices()
  ids := maps.Keys(devices)
  slices.Sort(ids)

  logDevices("Finished device discovery", ids)

  for _, id := range ids {
    d := devices[id]

    log.Info().
      Stringer("Addr", id).
      Str("Name", d.Name).
      Int("RSSI", d.RSSI).
      Bool("Probed", d.Probed).
      Bool("SupportedModel", device.IsSupportedModel(d.Name, cfg.SupportedModels)).
      Msg("Found device")
  }
}
