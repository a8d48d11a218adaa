package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/scanner"
	"github.com/robertof/go-nordic-uart/uart"
	"github.com/robertof/go-nordic-uart/utils"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
  backendHCI = "hci"
  backendTinyGo = "tinygo"
)

type scanConfig struct {
  Timeout time.Duration `yaml:"timeout"`
  ScanTime time.Duration `yaml:"scan_time"`
  PollInterval time.Duration `yaml:"poll_interval"`
  Probe bool `yaml:"probe"`
  ProbeTimeout time.Duration `yaml:"probe_timeout"`
  MaxConcurrentProbes int `yaml:"max_concurrent_probes"`
}

func (s scanConfig) Options() scanner.Options {
  return scanner.Options{
    Timeout: s.Timeout,
    ScanTime: s.ScanTime,
    PollInterval: s.PollInterval,
    ProbeTimeout: s.ProbeTimeout,
    MaxConcurrentProbes: s.MaxConcurrentProbes,
  }
}

type config struct {
  Debug, Trace bool `yaml:"-"`
  ConfigFile string `yaml:"-"`
  DiscoverDevices bool `yaml:"-"`

  LogLevel string `yaml:"log_level"`
  Backend string `yaml:"backend"`
  BluetoothDeviceId int `yaml:"hci_device"`
  AdapterID string `yaml:"adapter"`
  BluetoothConnParams ble.ConnParams `yaml:"conn_params"`
  BindAddress string `yaml:"bind"`
  Spans bool `yaml:"spans"`

  Retries int `yaml:"retries"`
  Timeout time.Duration `yaml:"timeout"`
  Backoff time.Duration `yaml:"backoff"`
  DrainTimeout time.Duration `yaml:"drain_timeout"`

  Scan scanConfig `yaml:"scan"`

  SupportedModels []string `yaml:"supported_models"`
  DeviceSpecs []string `yaml:"devices"`
  Devices device.DeviceSpecList `yaml:"-"`
  Allow []string `yaml:"allow"`

  WriteRate float64 `yaml:"write_rate"`
  WriteBurst int `yaml:"write_burst"`
  ReadInterval time.Duration `yaml:"read_interval"`
  Hex bool `yaml:"hex"`
}

func defaultConfig() config {
  opts := scanner.DefaultOptions()

  return config{
    Backend: backendHCI,
    BluetoothConnParams: ble.ConnParamsDefault,
    Retries: uart.DefaultRetries,
    Timeout: uart.DefaultTimeoutPerAttempt,
    Backoff: uart.DefaultBackoff,
    DrainTimeout: uart.DefaultDrainTimeout,
    Scan: scanConfig{
      Timeout: opts.Timeout,
      ScanTime: opts.ScanTime,
      PollInterval: opts.PollInterval,
      ProbeTimeout: opts.ProbeTimeout,
      MaxConcurrentProbes: opts.MaxConcurrentProbes,
    },
    SupportedModels: device.SupportedModels,
    WriteBurst: 1,
    ReadInterval: 200 * time.Millisecond,
  }
}

// Level resolves the log level from flags, environment and config file, in this order.
func (c config) Level() (zerolog.Level, error) {
  switch {
  case c.Trace || os.Getenv("TRACE") != "":
    return zerolog.TraceLevel, nil
  case c.Debug || os.Getenv("DEBUG") != "":
    return zerolog.DebugLevel, nil
  case c.LogLevel != "":
    return zerolog.ParseLevel(c.LogLevel)
  default:
    return zerolog.InfoLevel, nil
  }
}

func bindFlags(fs *flag.FlagSet, cfg *config) {
  fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Path to a YAML config file. Flags override its values")
  fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logs")
  fs.BoolVar(&cfg.Trace, "trace", cfg.Trace, "Enable trace logs")
  fs.BoolVar(&cfg.DiscoverDevices, "discover", cfg.DiscoverDevices, "Discover devices exposing the UART service and quit")
  fs.BoolVar(&cfg.Scan.Probe, "probe", cfg.Scan.Probe, "When discovering, also connect to devices that do not advertise the UART service")

  fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Bluetooth backend: 'hci' (raw HCI socket, Linux only) or 'tinygo' (BlueZ / CoreBluetooth)")
  fs.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", cfg.BluetoothDeviceId, "Bluetooth (HCI) device ID")
  fs.StringVar(&cfg.AdapterID, "adapter", cfg.AdapterID, "Adapter name for the tinygo backend, e.g. hci1. Empty for the default one")
  fs.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params", "Bluetooth connection parameters (one of 'default', 'power-saving' or 'low-latency')")
  fs.StringVar(&cfg.BindAddress, "bind", cfg.BindAddress, "Serve Prometheus metrics on this address. Disabled when empty")
  fs.BoolVar(&cfg.Spans, "spans", cfg.Spans, "Print OpenTelemetry spans of connection attempts and probes to stderr")

  fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Total number of connection attempts")
  fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for each connection attempt")
  fs.DurationVar(&cfg.Backoff, "backoff", cfg.Backoff, "Pause between connection attempts")
  fs.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "How long to wait for pending writes before disconnecting")

  fs.DurationVar(&cfg.Scan.Timeout, "scan-timeout", cfg.Scan.Timeout, "Stop scanning this long after the last new device")
  fs.DurationVar(&cfg.Scan.ScanTime, "scan-time", cfg.Scan.ScanTime, "Never scan for longer than this")
  fs.DurationVar(&cfg.Scan.ProbeTimeout, "probe-timeout", cfg.Scan.ProbeTimeout, "Timeout for each probe connection")
  fs.IntVar(&cfg.Scan.MaxConcurrentProbes, "max-concurrent-probes", cfg.Scan.MaxConcurrentProbes, "Probe connections in flight at once")

  fs.Var(&cfg.Devices, "device", "Device to connect to in the form of `addr=AA:BB:CC:DD:EE:FF,name=lamp`. "+
    "When missing, the first supported model found is used")
  fs.Func("model", "Local name prefix of a supported model (repeatable)", func(v string) error {
    cfg.SupportedModels = append(cfg.SupportedModels, v)
    return nil
  })
  fs.Func("allow", "Comma separated MAC addresses; HCI scans only report these", func(v string) error {
    for _, addr := range strings.Split(v, ",") {
      if addr = strings.TrimSpace(addr); addr != "" {
        cfg.Allow = append(cfg.Allow, addr)
      }
    }

    return nil
  })

  fs.Float64Var(&cfg.WriteRate, "write-rate", cfg.WriteRate, "Maximum writes per second. 0 means unlimited")
  fs.IntVar(&cfg.WriteBurst, "write-burst", cfg.WriteBurst, "Writes allowed in a burst when -write-rate is set")
  fs.DurationVar(&cfg.ReadInterval, "read-interval", cfg.ReadInterval, "How often the TX characteristic is read. 0 disables reading")
  fs.BoolVar(&cfg.Hex, "hex", cfg.Hex, "Print received data hex encoded")
}

func newFlagSet(output io.Writer, cfg *config) *flag.FlagSet {
  fs := flag.NewFlagSet("nordic-uart", flag.ContinueOnError)
  fs.SetOutput(output)
  bindFlags(fs, cfg)

  return fs
}

// parseConfig merges defaults, the optional config file and args, later ones winning.
func parseConfig(args []string, output io.Writer) (config, error) {
  cfg := defaultConfig()

  if err := newFlagSet(output, &cfg).Parse(args); err != nil {
    return cfg, err
  }

  if cfg.ConfigFile != "" {
    fromFile := defaultConfig()

    if err := loadConfigFile(cfg.ConfigFile, &fromFile); err != nil {
      return cfg, err
    }

    // flags again, on top of the file.
    cfg = fromFile

    if err := newFlagSet(io.Discard, &cfg).Parse(args); err != nil {
      return cfg, err
    }
  }

  for _, spec := range cfg.DeviceSpecs {
    if err := cfg.Devices.Set(spec); err != nil {
      return cfg, fmt.Errorf("config: invalid device %q: %w", spec, err)
    }
  }

  cfg.DeviceSpecs = nil
  cfg.SupportedModels = utils.Dedup(cfg.SupportedModels)
  cfg.Allow = utils.Dedup(cfg.Allow)

  return cfg, cfg.validate()
}

func loadConfigFile(path string, cfg *config) error {
  data, err := os.ReadFile(path)

  if err != nil {
    return fmt.Errorf("config: %w", err)
  }

  if err := yaml.Unmarshal(data, cfg); err != nil {
    return fmt.Errorf("config: failed to parse %s: %w", path, err)
  }

  return nil
}

func (c config) validate() error {
  var errs []error

  if c.Backend != backendHCI && c.Backend != backendTinyGo {
    errs = append(errs, fmt.Errorf("unknown backend %q (must be %q or %q)", c.Backend, backendHCI, backendTinyGo))
  }

  if len(c.Devices) > 1 {
    errs = append(errs, errors.New("only one device can be connected to at a time"))
  }

  if c.Retries < 1 {
    errs = append(errs, fmt.Errorf("retries must be at least 1, got %d", c.Retries))
  }

  if c.WriteRate < 0 {
    errs = append(errs, fmt.Errorf("write rate must not be negative, got %v", c.WriteRate))
  }

  if len(c.Allow) > 0 && c.Backend != backendHCI {
    errs = append(errs, errors.New("allow-listing is only supported by the hci backend"))
  }

  for _, addr := range c.Allow {
    if _, err := device.NewIdentity(addr).HardwareAddr(); err != nil {
      errs = append(errs, fmt.Errorf("invalid allow-listed address %q: %w", addr, err))
    }
  }

  if _, err := c.Level(); err != nil {
    errs = append(errs, err)
  }

  if len(errs) > 0 {
    return fmt.Errorf("config: %w", errors.Join(errs...))
  }

  return nil
}

// ParseArgs parses the command line, exiting on invalid input like the flag package does.
func ParseArgs() config {
  cfg, err := parseConfig(os.Args[1:], os.Stderr)

  if errors.Is(err, flag.ErrHelp) {
    os.Exit(0)
  }

  if err != nil {
    fmt.Fprintln(os.Stderr, "Error:", err)
    os.Exit(2)
  }

  return cfg
}
