package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/ble/tinygo"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/metrics"
	"github.com/robertof/go-nordic-uart/tracing"
	"github.com/robertof/go-nordic-uart/uart"
	"github.com/robertof/go-nordic-uart/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  level, _ := cfg.Level() // validated by ParseArgs
  zerolog.SetGlobalLevel(level)

  shutdownTracing := initTracing(cfg)
  defer shutdownTracing()

  registry := prometheus.NewRegistry()
  metrics.Register(registry)

  transport, stop := initTransport(cfg, registry)
  defer stop()

  if cfg.BindAddress != "" {
    go serveMetrics(cfg.BindAddress, registry)
  }

  ctx, cancel := context.WithCancel(context.Background())
  ctx = ble.WrapContextWithSigHandler(ctx, cancel)
  defer cancel()

  if cfg.DiscoverDevices {
    doDeviceDiscovery(ctx, cfg, transport)
    return
  }

  client := newClient(cfg, transport)
  client.RegisterMetrics(registry)

  if client.Target() == "" {
    log.Info().
      Array("Models", utils.ToZeroLogStrArray(cfg.SupportedModels)).
      Msg("No device configured, looking for a supported model")

    scanCtx, cancelScan := context.WithTimeout(ctx, cfg.Scan.ScanTime)
    adv, err := client.DiscoverSupported(scanCtx, cfg.SupportedModels)
    cancelScan()

    if err != nil {
      log.Fatal().Err(err).Msg("No supported device found")
    }

    log.Info().Stringer("Device", adv).Msg("Using discovered device")
  }

  log.Info().
    Stringer("Device", client.Target()).
    Int("Retries", cfg.Retries).
    Dur("TimeoutSec", cfg.Timeout).
    Msg("Starting UART bridge")

  err := client.Do(ctx, func(ctx context.Context, c *uart.Client) error {
    return bridge(ctx, c, os.Stdin, os.Stdout, bridgeOptions{
      ReadInterval: cfg.ReadInterval,
      Hex: cfg.Hex,
    })
  })

  if err != nil && !errors.Is(err, context.Canceled) {
    log.Fatal().Err(err).Msg("UART session failed")
  }
}

func newClient(cfg config, transport ble.Transport) *uart.Client {
  var target device.Identity

  if len(cfg.Devices) > 0 {
    // validated while parsing.
    target, _ = cfg.Devices[0].Identity()
  }

  client := uart.NewClient(transport, target)
  client.ConnectOptions = uart.ConnectOptions{
    Retries: cfg.Retries,
    TimeoutPerAttempt: cfg.Timeout,
    Backoff: cfg.Backoff,
  }
  client.DrainTimeout = cfg.DrainTimeout

  if cfg.WriteRate > 0 {
    client.WriteLimiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), max(cfg.WriteBurst, 1))
  }

  return client
}

func initTransport(cfg config, registry prometheus.Registerer) (ble.Transport, func()) {
  if cfg.Backend == backendTinyGo {
    t, err := tinygo.New(cfg.AdapterID, uartServiceUUIDs()...)

    if err != nil {
      log.Fatal().Err(err).Msg("Failed to initialize Bluetooth adapter")
    }

    return t, func() {}
  }

  ble.RegisterMetrics(registry)

  var bleFlags ble.Flags = ble.FlagScanTypeActive

  if len(cfg.Allow) > 0 {
    bleFlags |= ble.FlagEnableDeviceAllowList
  }

  handle, err := ble.InitWithConnParams(cfg.BluetoothDeviceId, cfg.BluetoothConnParams, bleFlags)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  if len(cfg.Allow) > 0 {
    addresses := make([]net.HardwareAddr, 0, len(cfg.Allow))

    for _, a := range cfg.Allow {
      // validated while parsing.
      addr, _ := device.NewIdentity(a).HardwareAddr()
      addresses = append(addresses, addr)
    }

    if err := handle.SetAllowListedAddresses(addresses); err != nil {
      log.Error().Err(err).Msg("Failed to set device allow list")
    }
  }

  return handle, handle.Stop
}

func initTracing(cfg config) func() {
  var out io.Writer

  if cfg.Spans {
    out = os.Stderr
  }

  shutdown, err := tracing.Setup(out)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize tracing")
  }

  return func() {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    if err := shutdown(ctx); err != nil {
      log.Warn().Err(err).Msg("Failed to flush spans")
    }
  }
}

func uartServiceUUIDs() []ble.UUID {
  return []ble.UUID{uart.ServiceUUID}
}

func serveMetrics(addr string, registry *prometheus.Registry) {
  log.Info().
    Str("ListenAddress", addr).
    Msg("Starting Prometheus server")

  mux := http.NewServeMux()
  mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

  if err := http.ListenAndServe(addr, mux); err != nil {
    log.Fatal().Err(err).Msg("Unable to bind on requested address")
  }
}

func logDevices(msg string, ids []device.Identity) {
  log.Info().
    Array("Devices", utils.ToZeroLogArray(ids)).
    Msg(msg)
}
