package scanner

import (
  "context"
  "fmt"
  "sync"

  "github.com/robertof/go-nordic-uart/ble"
  "github.com/robertof/go-nordic-uart/device"
  "github.com/robertof/go-nordic-uart/metrics"
  "github.com/robertof/go-nordic-uart/tracing"
  "github.com/robertof/go-nordic-uart/uart"
  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"
)

// ConnectingScanner also finds devices that do not advertise the UART service, by briefly
// connecting to each of them and looking at their GATT services.
//
// Every device is considered at most once per scanner: it is marked as checked before the
// probe starts, and a failed probe is not repeated.
type ConnectingScanner struct {
  results

  transport ble.Transport
  opts Options

  checkedMu sync.Mutex
  checked map[device.Identity]struct{}
}

func NewConnectingScanner(t ble.Transport, opts Options) *ConnectingScanner {
  return &ConnectingScanner{
    transport: t,
    opts: opts.normalize(),
    checked: make(map[device.Identity]struct{}),
  }
}

func (s *ConnectingScanner) markChecked(id device.Identity) bool {
  s.checkedMu.Lock()
  defer s.checkedMu.Unlock()

  if _, ok := s.checked[id]; ok {
    return false
  }

  s.checked[id] = struct{}{}

  return true
}

func (s *ConnectingScanner) unmarkChecked(id device.Identity) {
  s.checkedMu.Lock()
  defer s.checkedMu.Unlock()

  delete(s.checked, id)
}

// Scan blocks until the scan is over and every probe it started has returned. Probe
// failures are logged and never returned.
func (s *ConnectingScanner) Scan(ctx context.Context) error {
  probeCtx, cancelProbes := context.WithCancel(ctx)
  defer cancelProbes()

  var eg errgroup.Group
  var queueMu sync.RWMutex
  queueClosed := false
  queue := make(chan device.Advertisement, probeQueueSize)

  for i := 0; i < s.opts.MaxConcurrentProbes; i++ {
    eg.Go(func() error {
      for a := range queue {
        // drain whatever is left once the scan is over.
        if probeCtx.Err() != nil {
          continue
        }

        s.probe(probeCtx, a)
      }

      return nil
    })
  }

  err := runScan(ctx, s.transport, s.opts, s.len, func(a device.Advertisement) {
    if !s.markChecked(a.Identity) {
      return
    }

    if a.HasService(uart.ServiceUUID) {
      s.record(Discovery{Advertisement: a})
      return
    }

    if !a.Connectable {
      log.Trace().Stringer("Device", a.Identity).Msg("scanner: not connectable, skipping probe")
      return
    }

    queueMu.RLock()
    defer queueMu.RUnlock()

    if queueClosed {
      return
    }

    select {
    case queue <- a:
    default:
      s.unmarkChecked(a.Identity)

      log.Debug().
        Stringer("Device", a.Identity).
        Msg("scanner: probe queue full, will retry on next advertisement")
    }
  })

  cancelProbes()

  queueMu.Lock()
  queueClosed = true
  close(queue)
  queueMu.Unlock()

  // workers never fail, probe errors are only logged.
  _ = eg.Wait()

  return err
}

func (s *ConnectingScanner) record(d Discovery) {
  if !s.add(d) {
    return
  }

  method := metrics.MethodAdvertisement

  if d.Probed {
    method = metrics.MethodProbe
  }

  metrics.DevicesDiscovered.WithLabelValues(method).Inc()

  log.Info().
    Stringer("Device", d.Identity).
    Str("Name", d.Name).
    Bool("Probed", d.Probed).
    Msg("scanner: found UART device")
}

func (s *ConnectingScanner) probe(ctx context.Context, a device.Advertisement) {
  defer func() {
    if r := recover(); r != nil {
      metrics.ProbeFailures.Inc()

      log.Error().
        Stringer("Device", a.Identity).
        Interface("Panic", r).
        Msg("scanner: probe panicked, treating device as unsupported")
    }
  }()

  ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
  defer cancel()

  log.Trace().Stringer("Device", a.Identity).Msg("scanner: probing device")

  supported, err := probeServices(ctx, s.transport, a.Identity)

  if err != nil {
    metrics.ProbeFailures.Inc()

    log.Debug().
      Err(err).
      Stringer("Device", a.Identity).
      Msg("scanner: probe failed, treating device as unsupported")

    return
  }

  if !supported {
    log.Trace().Stringer("Device", a.Identity).Msg("scanner: device has no UART service")
    return
  }

  s.record(Discovery{Advertisement: a, Probed: true})
}

func probeServices(ctx context.Context, t ble.Transport, id device.Identity) (supported bool, err error) {
  ctx, span := tracing.StartSpan(ctx, "scanner.probe", tracing.Device(id))
  defer func() { tracing.End(span, err) }()

  link, err := ble.ConnectWithin(ctx, t, id)

  if err != nil {
    return false, fmt.Errorf("failed to connect: %w", err)
  }

  defer ble.DisconnectQuietly(link, id)

  services, err := ble.DiscoverServicesWithin(ctx, link)

  if err != nil {
    return false, fmt.Errorf("failed to discover services: %w", err)
  }

  return uart.HasService(services), nil
}
