// Package bletest provides an in-memory ble.Transport with scriptable peripherals.
package bletest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	nordic "github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/device"
)

var (
	ErrUnknownPeripheral = errors.New("bletest: unknown peripheral")
	ErrConnectRefused    = errors.New("bletest: connection refused")
)

// Peripheral describes how a simulated device advertises and behaves once connected.
type Peripheral struct {
	Advertisement device.Advertisement

	// Delay from the start of each scan to the first advertisement. A negative value
	// disables advertising altogether.
	AdvertiseAfter time.Duration
	// Repeat the advertisement at this interval. Zero advertises once per scan.
	AdvertiseEvery time.Duration

	Services []*ble.Service

	// The first FailConnects connection attempts return ConnectErr (ErrConnectRefused if nil).
	FailConnects int
	ConnectErr   error
	// Connection attempts block until the context expires.
	Hang bool
	// Panic while connecting.
	Panic bool
	// Connection attempts take this long whatever the context says.
	Stall time.Duration

	DiscoverErr error
	// Service discovery takes this long whatever the context says.
	DiscoverStall time.Duration

	// Values written to RX become readable from TX.
	Loopback bool
}

var _ nordic.Transport = (*Transport)(nil)

// Transport simulates a radio surrounded by a fixed set of peripherals.
type Transport struct {
	// Returned right away by Scan when set.
	ScanErr error

	mu          sync.Mutex
	peripherals map[device.Identity]*Peripheral
	connects    map[device.Identity]int
	links       []*Link
	scans       int
}

func NewTransport(peripherals ...*Peripheral) *Transport {
	t := &Transport{
		peripherals: make(map[device.Identity]*Peripheral),
		connects:    make(map[device.Identity]int),
	}

	for _, p := range peripherals {
		t.Add(p)
	}

	return t
}

func (t *Transport) Add(p *Peripheral) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.peripherals[p.Advertisement.Identity] = p
}

// Connects returns how many times Connect was called for id.
func (t *Transport) Connects(id device.Identity) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.connects[id]
}

// TotalConnects returns how many times Connect was called overall.
func (t *Transport) TotalConnects() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0

	for _, n := range t.connects {
		total += n
	}

	return total
}

func (t *Transport) Scans() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.scans
}

// Links returns every link handed out so far.
func (t *Transport) Links() []*Link {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*Link(nil), t.links...)
}

func (t *Transport) Scan(ctx context.Context, onAdvertisement func(device.Advertisement)) error {
	t.mu.Lock()
	t.scans++
	peripherals := make([]Peripheral, 0, len(t.peripherals))

	for _, p := range t.peripherals {
		peripherals = append(peripherals, *p)
	}

	t.mu.Unlock()

	if t.ScanErr != nil {
		return t.ScanErr
	}

	var wg sync.WaitGroup

	for _, p := range peripherals {
		if p.AdvertiseAfter < 0 {
			continue
		}

		wg.Add(1)

		go func(p Peripheral) {
			defer wg.Done()
			advertise(ctx, p, onAdvertisement)
		}(p)
	}

	<-ctx.Done()
	wg.Wait()

	return nil
}

func advertise(ctx context.Context, p Peripheral, onAdvertisement func(device.Advertisement)) {
	timer := time.NewTimer(p.AdvertiseAfter)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		onAdvertisement(p.Advertisement)

		if p.AdvertiseEvery <= 0 {
			return
		}

		timer.Reset(p.AdvertiseEvery)
	}
}

func (t *Transport) Connect(ctx context.Context, id device.Identity) (nordic.Link, error) {
	t.mu.Lock()
	t.connects[id]++
	p, ok := t.peripherals[id]
	fail := false

	if ok && p.FailConnects > 0 {
		p.FailConnects--
		fail = true
	}

	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPeripheral, id)
	}

	if p.Panic {
		panic(fmt.Sprintf("bletest: connecting to %v", id))
	}

	time.Sleep(p.Stall)

	if p.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if fail {
		if p.ConnectErr != nil {
			return nil, p.ConnectErr
		}

		return nil, ErrConnectRefused
	}

	l := &Link{
		id:            id,
		services:      p.Services,
		discoverErr:   p.DiscoverErr,
		discoverStall: p.DiscoverStall,
		loopback:      p.Loopback,
		values:        make(map[string][]byte),
	}

	t.mu.Lock()
	t.links = append(t.links, l)
	t.mu.Unlock()

	return l, nil
}

// Link is a simulated connection. Characteristic values are kept per UUID.
type Link struct {
	id            device.Identity
	services      []*ble.Service
	discoverErr   error
	discoverStall time.Duration
	loopback      bool

	mu           sync.Mutex
	values       map[string][]byte
	writes       [][]byte
	disconnected int
}

func (l *Link) Identity() device.Identity {
	return l.id
}

func (l *Link) DiscoverServices(ctx context.Context) ([]*ble.Service, error) {
	time.Sleep(l.discoverStall)

	if l.discoverErr != nil {
		return nil, l.discoverErr
	}

	return l.services, nil
}

func (l *Link) ReadCharacteristic(ctx context.Context, c *ble.Characteristic) ([]byte, error) {
	if err := l.check(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]byte(nil), l.values[c.UUID.String()]...), nil
}

func (l *Link) WriteCharacteristic(ctx context.Context, c *ble.Characteristic, data []byte, ack bool) error {
	if err := l.check(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	value := append([]byte(nil), data...)
	l.values[c.UUID.String()] = value
	l.writes = append(l.writes, value)

	if l.loopback {
		l.values[ble.MustParse(txUUID).String()] = value
	}

	return nil
}

func (l *Link) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if l.Disconnected() {
		return errors.New("bletest: link closed")
	}

	return nil
}

func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.disconnected++

	return nil
}

func (l *Link) Disconnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.disconnected > 0
}

// Writes returns every value written through this link, in order.
func (l *Link) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([][]byte(nil), l.writes...)
}
