package scanner_test

import (
  "context"
  "errors"
  "fmt"
  "time"

  . "github.com/onsi/ginkgo/v2"
  . "github.com/onsi/gomega"

  "github.com/robertof/go-nordic-uart/ble/bletest"
  "github.com/robertof/go-nordic-uart/device"
  "github.com/robertof/go-nordic-uart/scanner"
  "github.com/robertof/go-nordic-uart/uart"
)

func fastOptions() scanner.Options {
  return scanner.Options{
    Timeout: 100 * time.Millisecond,
    ScanTime: 2 * time.Second,
    PollInterval: 5 * time.Millisecond,
    ProbeTimeout: time.Second,
    MaxConcurrentProbes: 1,
  }
}

func advertising(addr string, name string, after time.Duration) *bletest.Peripheral {
  return &bletest.Peripheral{
    Advertisement: bletest.Advertisement(addr, name, uart.ServiceUUID),
    AdvertiseAfter: after,
    AdvertiseEvery: 5 * time.Millisecond,
    Services: bletest.UARTServices(),
  }
}

func timed(f func() error) (time.Duration, error) {
  start := time.Now()
  err := f()

  return time.Since(start), err
}

var _ = Describe("AdvertisementScanner", func() {
  var opts scanner.Options

  BeforeEach(func() {
    opts = fastOptions()
  })

  It("records each UART advertiser once", func() {
    other := &bletest.Peripheral{
      Advertisement: bletest.Advertisement("11:22:33:44:55:66", "Thermometer"),
      AdvertiseEvery: 5 * time.Millisecond,
      Services: bletest.UARTServices(),
    }

    transport := bletest.NewTransport(advertising("AA:BB:CC:DD:EE:01", "ILLUMI-1", 0), other)
    s := scanner.NewAdvertisementScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(Succeed())

    devices := s.Devices()
    Expect(devices).To(HaveLen(1))
    Expect(devices).To(HaveKey(device.Identity("aa:bb:cc:dd:ee:01")))
    Expect(devices["aa:bb:cc:dd:ee:01"].Probed).To(BeFalse())
    Expect(transport.TotalConnects()).To(BeZero())
  })

  It("finishes after the timeout when nothing is found", func() {
    s := scanner.NewAdvertisementScanner(bletest.NewTransport(), opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(s.Devices()).To(BeEmpty())
    Expect(elapsed).To(BeNumerically(">=", opts.Timeout))
    Expect(elapsed).To(BeNumerically("<", opts.ScanTime))
  })

  It("extends the timeout when new devices show up", func() {
    transport := bletest.NewTransport(
      advertising("AA:BB:CC:DD:EE:01", "ILLUMI-1", 0),
      advertising("AA:BB:CC:DD:EE:02", "ILLUMI-2", 70*time.Millisecond),
    )

    s := scanner.NewAdvertisementScanner(transport, opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(s.Devices()).To(HaveLen(2))
    Expect(elapsed).To(BeNumerically(">=", 70*time.Millisecond+opts.Timeout))
  })

  It("never runs past the scan time", func() {
    opts.ScanTime = 300 * time.Millisecond

    var peripherals []*bletest.Peripheral

    // a new device every 40ms keeps extending the timeout.
    for i := 0; i < 50; i++ {
      peripherals = append(peripherals, advertising(
        fmt.Sprintf("AA:BB:CC:DD:EE:%02X", i),
        fmt.Sprintf("ILLUMI-%d", i),
        time.Duration(i) * 40 * time.Millisecond,
      ))
    }

    s := scanner.NewAdvertisementScanner(bletest.NewTransport(peripherals...), opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(elapsed).To(BeNumerically(">=", opts.ScanTime))
    Expect(elapsed).To(BeNumerically("<", opts.ScanTime+500*time.Millisecond))
    Expect(len(s.Devices())).To(BeNumerically("<", 50))
  })

  It("exposes discoveries while scanning", func() {
    opts.Timeout = time.Second

    s := scanner.NewAdvertisementScanner(
      bletest.NewTransport(advertising("AA:BB:CC:DD:EE:01", "ILLUMI-1", 0)),
      opts,
    )

    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan error, 1)

    go func() { done <- s.Scan(ctx) }()

    Eventually(s.Devices).Should(HaveKey(device.Identity("aa:bb:cc:dd:ee:01")))

    cancel()
    Eventually(done).Should(Receive(MatchError(context.Canceled)))
  })

  It("returns snapshots", func() {
    s := scanner.NewAdvertisementScanner(
      bletest.NewTransport(advertising("AA:BB:CC:DD:EE:01", "ILLUMI-1", 0)),
      opts,
    )

    Expect(s.Scan(context.Background())).To(Succeed())

    devices := s.Devices()
    delete(devices, "aa:bb:cc:dd:ee:01")

    Expect(s.Devices()).To(HaveLen(1))
  })

  It("reports transport failures", func() {
    transport := bletest.NewTransport()
    transport.ScanErr = errors.New("hci: adapter is down")

    s := scanner.NewAdvertisementScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(MatchError(ContainSubstring("adapter is down")))
  })
})

var _ = Describe("ConnectingScanner", func() {
  var opts scanner.Options

  BeforeEach(func() {
    opts = fastOptions()
  })

  quiet := func(addr string, name string) *bletest.Peripheral {
    return &bletest.Peripheral{
      Advertisement: bletest.Advertisement(addr, name),
      AdvertiseEvery: 5 * time.Millisecond,
      Services: bletest.UARTServices(),
    }
  }

  It("classifies devices and probes each of them exactly once", func() {
    advertised := advertising("AA:BB:CC:DD:EE:01", "ILLUMI-1", 0)
    hidden := quiet("AA:BB:CC:DD:EE:02", "ILLUMI-2")

    unsupported := quiet("AA:BB:CC:DD:EE:03", "Thermometer")
    unsupported.Services = bletest.OtherServices()

    refusing := quiet("AA:BB:CC:DD:EE:04", "Flaky")
    refusing.FailConnects = 1

    broken := quiet("AA:BB:CC:DD:EE:05", "Broken")
    broken.DiscoverErr = errors.New("att: request timed out")

    transport := bletest.NewTransport(advertised, hidden, unsupported, refusing, broken)
    s := scanner.NewConnectingScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(Succeed())

    devices := s.Devices()
    Expect(devices).To(HaveLen(2))
    Expect(devices["aa:bb:cc:dd:ee:01"].Probed).To(BeFalse())
    Expect(devices["aa:bb:cc:dd:ee:02"].Probed).To(BeTrue())

    Expect(transport.Connects("aa:bb:cc:dd:ee:01")).To(BeZero())

    for _, id := range []device.Identity{"aa:bb:cc:dd:ee:02", "aa:bb:cc:dd:ee:03", "aa:bb:cc:dd:ee:04", "aa:bb:cc:dd:ee:05"} {
      Expect(transport.Connects(id)).To(Equal(1), "connections to %v", id)
    }

    for _, l := range transport.Links() {
      Expect(l.Disconnected()).To(BeTrue(), "link to %v left open", l.Identity())
    }
  })

  It("contains panics raised while probing", func() {
    exploding := quiet("AA:BB:CC:DD:EE:06", "Exploding")
    exploding.Panic = true

    transport := bletest.NewTransport(exploding, quiet("AA:BB:CC:DD:EE:02", "ILLUMI-2"))
    opts.MaxConcurrentProbes = 2

    s := scanner.NewConnectingScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(Succeed())
    Expect(s.Devices()).To(HaveKey(device.Identity("aa:bb:cc:dd:ee:02")))
    Expect(s.Devices()).NotTo(HaveKey(device.Identity("aa:bb:cc:dd:ee:06")))
    Expect(transport.Connects("aa:bb:cc:dd:ee:06")).To(Equal(1))
  })

  It("bounds each probe by the probe timeout", func() {
    hanging := quiet("AA:BB:CC:DD:EE:07", "Hanging")
    hanging.Hang = true

    hidden := quiet("AA:BB:CC:DD:EE:02", "ILLUMI-2")
    hidden.AdvertiseAfter = 5 * time.Millisecond

    opts.ProbeTimeout = 20 * time.Millisecond

    transport := bletest.NewTransport(hanging, hidden)
    s := scanner.NewConnectingScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(Succeed())
    Expect(s.Devices()).To(HaveLen(1))
    Expect(s.Devices()).To(HaveKey(device.Identity("aa:bb:cc:dd:ee:02")))
  })

  It("stops probes when the scan ends", func() {
    hanging := quiet("AA:BB:CC:DD:EE:07", "Hanging")
    hanging.Hang = true

    opts.ProbeTimeout = time.Hour
    opts.ScanTime = 100 * time.Millisecond

    s := scanner.NewConnectingScanner(bletest.NewTransport(hanging), opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(elapsed).To(BeNumerically("<", time.Second))
    Expect(s.Devices()).To(BeEmpty())
  })

  It("keeps the scan time ceiling when the transport ignores cancellation", func() {
    stalling := quiet("AA:BB:CC:DD:EE:09", "Stalling")
    stalling.Stall = 2 * time.Second

    opts.ScanTime = 200 * time.Millisecond
    opts.ProbeTimeout = 50 * time.Millisecond

    transport := bletest.NewTransport(stalling)
    s := scanner.NewConnectingScanner(transport, opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(elapsed).To(BeNumerically("<", time.Second))
    Expect(s.Devices()).To(BeEmpty())

    // the connection completing after the probe gave up is closed.
    Eventually(func() bool {
      links := transport.Links()
      return len(links) == 1 && links[0].Disconnected()
    }).WithTimeout(5 * time.Second).WithPolling(20 * time.Millisecond).Should(BeTrue())
  })

  It("bounds stalled service discovery by ProbeTimeout", func() {
    stalling := quiet("AA:BB:CC:DD:EE:0A", "SlowGATT")
    stalling.DiscoverStall = 2 * time.Second

    opts.ProbeTimeout = 50 * time.Millisecond

    transport := bletest.NewTransport(stalling)
    s := scanner.NewConnectingScanner(transport, opts)

    elapsed, err := timed(func() error { return s.Scan(context.Background()) })

    Expect(err).NotTo(HaveOccurred())
    Expect(elapsed).To(BeNumerically("<", time.Second))
    Expect(s.Devices()).To(BeEmpty())
    Expect(transport.Links()).To(HaveLen(1))
    Expect(transport.Links()[0].Disconnected()).To(BeTrue())
  })

  It("does not probe devices that cannot be connected to", func() {
    beacon := quiet("AA:BB:CC:DD:EE:08", "Beacon")
    beacon.Advertisement.Connectable = false

    transport := bletest.NewTransport(beacon)
    s := scanner.NewConnectingScanner(transport, opts)

    Expect(s.Scan(context.Background())).To(Succeed())
    Expect(transport.TotalConnects()).To(BeZero())
  })
})
