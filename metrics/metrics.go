package metrics

import (
  "github.com/prometheus/client_golang/prometheus"
)

var (
  ConnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
    Name: "nordic_uart_connect_attempts_total",
    Help: "Connection attempts made by UART sessions, by outcome.",
  }, []string{"result"})

  VerificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_verification_failures_total",
    Help: "Connected peripherals that did not expose a usable UART service.",
  })

  BytesRead = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_read_bytes_total",
  })

  BytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_written_bytes_total",
  })

  PendingWrites = prometheus.NewGauge(prometheus.GaugeOpts{
    Name: "nordic_uart_pending_writes",
    Help: "Scheduled writes that have not completed yet.",
  })

  CancelledWrites = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_cancelled_writes_total",
  })

  DevicesDiscovered = prometheus.NewCounterVec(prometheus.CounterOpts{
    Name: "nordic_uart_discovered_devices_total",
    Help: "Supported devices found by scanners, by discovery method.",
  }, []string{"method"})

  ProbeFailures = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_probe_failures_total",
    Help: "Provisional connections made by the connecting scanner that failed.",
  })
)

const (
  ResultSuccess = "success"
  ResultFailure = "failure"
  ResultTimeout = "timeout"

  MethodAdvertisement = "advertisement"
  MethodProbe = "probe"
)

var descSessionState = prometheus.NewDesc(
  "nordic_uart_session_state",
  "Current state of the UART session. 1 for the active state, 0 otherwise.",
  []string{"device", "state"},
  nil,
)

// StateFunc reports the session target and the name of the current state, plus the
// names of every possible state.
type StateFunc func() (target string, current string, all []string)

type collector struct {
  StateFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  target, current, all := c.StateFunc()

  for _, state := range all {
    v := 0.0

    if state == current {
      v = 1
    }

    ch <- prometheus.MustNewConstMetric(
      descSessionState,
      prometheus.GaugeValue,
      v,
      target,
      state,
    )
  }
}

// Register registers the package counters with reg.
func Register(reg prometheus.Registerer) {
  reg.MustRegister(
    ConnectAttempts,
    VerificationFailures,
    BytesRead,
    BytesWritten,
    PendingWrites,
    CancelledWrites,
    DevicesDiscovered,
    ProbeFailures,
  )
}

func RegisterSessionCollector(f StateFunc, reg prometheus.Registerer) {
  c := &collector{f}

  reg.MustRegister(c)
}
