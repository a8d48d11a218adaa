package uart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertof/go-nordic-uart/ble/bletest"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/uart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func loopbackPeripheral(addr string, name string) *bletest.Peripheral {
	return &bletest.Peripheral{
		Advertisement: bletest.Advertisement(addr, name),
		Services:      bletest.UARTServices(),
		Loopback:      true,
	}
}

func connected(t *testing.T, transport *bletest.Transport, id device.Identity) *uart.Client {
	t.Helper()

	c := uart.NewClient(transport, id)
	require.NoError(t, c.ConnectWithOptions(context.Background(), fastOptions(1)))
	t.Cleanup(c.Disconnect)

	return c
}

// slowWrites lets one write through and holds every following one for an hour.
func slowWrites() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Hour), 1)
}

func TestReadWrite_NotConnected(t *testing.T) {
	c := uart.NewClient(bletest.NewTransport(), target)

	_, err := c.Read(context.Background())
	require.ErrorIs(t, err, uart.ErrNotConnected)

	err = c.Write(context.Background(), []byte("hi"))
	require.ErrorIs(t, err, uart.ErrNotConnected)
}

func TestReadWrite_Loopback(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)

	require.NoError(t, c.Write(context.Background(), []byte("hello\n")))

	got, err := c.Read(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), got)
}

func TestReadWrite_AfterDisconnect(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)

	c.Disconnect()

	_, err := c.Read(context.Background())
	require.ErrorIs(t, err, uart.ErrNotConnected)
	assert.True(t, transport.Links()[0].Disconnected())
}

func TestConnect_RetriesAgainstSimulatedPeripheral(t *testing.T) {
	p := loopbackPeripheral(target.String(), "ILLUMI-1")
	p.FailConnects = 2

	transport := bletest.NewTransport(p)
	c := uart.NewClient(transport, target)

	require.NoError(t, c.ConnectWithOptions(context.Background(), fastOptions(3)))
	assert.Equal(t, 3, transport.Connects(target))

	c.Disconnect()
}

func TestConnect_DiscoveryFailureExhaustsRetries(t *testing.T) {
	p := loopbackPeripheral(target.String(), "ILLUMI-1")
	p.DiscoverErr = errors.New("att: request timed out")

	transport := bletest.NewTransport(p)
	c := uart.NewClient(transport, target)

	err := c.ConnectWithOptions(context.Background(), fastOptions(3))

	require.ErrorIs(t, err, uart.ErrConnectionExhausted)
	assert.Equal(t, 3, transport.Connects(target))

	for _, l := range transport.Links() {
		assert.True(t, l.Disconnected())
	}
}

func TestConnect_MissingCharacteristic(t *testing.T) {
	p := loopbackPeripheral(target.String(), "ILLUMI-1")
	p.Services = bletest.PartialUARTServices(true, false)

	transport := bletest.NewTransport(p)
	c := uart.NewClient(transport, target)

	err := c.ConnectWithOptions(context.Background(), fastOptions(3))

	require.ErrorIs(t, err, uart.ErrCharacteristicNotFound)
	assert.Equal(t, 1, transport.Connects(target))
	assert.Equal(t, uart.StateFailed, c.State())
	assert.True(t, transport.Links()[0].Disconnected())
}

func TestScheduleWrite(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)

	w := c.ScheduleWrite([]byte("one"))

	require.NoError(t, w.Wait(context.Background()))
	require.NoError(t, w.Err())
	assert.Equal(t, 0, c.PendingWrites())
	assert.Equal(t, [][]byte{[]byte("one")}, transport.Links()[0].Writes())
}

func TestScheduleWrite_CopiesData(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)

	data := []byte("abc")
	w := c.ScheduleWrite(data)
	data[0] = 'X'

	require.NoError(t, w.Wait(context.Background()))
	assert.Equal(t, [][]byte{[]byte("abc")}, transport.Links()[0].Writes())
}

func TestScheduleWrite_NotConnected(t *testing.T) {
	c := uart.NewClient(bletest.NewTransport(), target)

	w := c.ScheduleWrite([]byte("one"))

	require.ErrorIs(t, w.Wait(context.Background()), uart.ErrNotConnected)
}

func TestDisconnect_CancelsScheduledWrites(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)
	c.WriteLimiter = slowWrites()

	first := c.ScheduleWrite([]byte("first"))
	require.NoError(t, first.Wait(context.Background()))

	second := c.ScheduleWrite([]byte("second"))
	third := c.ScheduleWrite([]byte("third"))

	assert.Nil(t, second.Err())
	assert.Equal(t, 2, c.PendingWrites())

	c.Disconnect()

	for _, w := range []*uart.PendingWrite{second, third} {
		select {
		case <-w.Done():
		case <-time.After(time.Second):
			t.Fatal("scheduled write still pending after Disconnect")
		}

		assert.ErrorIs(t, w.Err(), uart.ErrWriteCancelled)
	}

	assert.Equal(t, 0, c.PendingWrites())
	assert.Equal(t, [][]byte{[]byte("first")}, transport.Links()[0].Writes())
}

func TestDrain(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)

	for i := 0; i < 5; i++ {
		c.ScheduleWrite([]byte{byte(i)})
	}

	require.NoError(t, c.Drain(context.Background()))
	assert.Equal(t, 0, c.PendingWrites())
	assert.Len(t, transport.Links()[0].Writes(), 5)
}

func TestDrain_Timeout(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := connected(t, transport, target)
	c.WriteLimiter = slowWrites()

	c.ScheduleWrite([]byte("first"))
	c.ScheduleWrite([]byte("second"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, c.Drain(ctx), context.DeadlineExceeded)
}

func TestDo(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := uart.NewClient(transport, target)
	c.ConnectOptions = fastOptions(1)

	var echoed []byte

	err := c.Do(context.Background(), func(ctx context.Context, c *uart.Client) error {
		if err := c.ScheduleWrite([]byte("ping")).Wait(ctx); err != nil {
			return err
		}

		var err error
		echoed, err = c.Read(ctx)

		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), echoed)
	assert.Equal(t, uart.StateDisconnected, c.State())
	assert.True(t, transport.Links()[0].Disconnected())
}

func TestDo_ConnectFailure(t *testing.T) {
	c := uart.NewClient(bletest.NewTransport(), "")
	called := false

	err := c.Do(context.Background(), func(context.Context, *uart.Client) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, uart.ErrNoDevice)
	assert.False(t, called)
}

func TestDo_ReturnsCallbackError(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := uart.NewClient(transport, target)
	c.ConnectOptions = fastOptions(1)

	boom := errors.New("boom")

	err := c.Do(context.Background(), func(context.Context, *uart.Client) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, uart.StateDisconnected, c.State())
}

func TestDo_DrainTimeout(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := uart.NewClient(transport, target)
	c.ConnectOptions = fastOptions(1)
	c.DrainTimeout = 20 * time.Millisecond
	c.WriteLimiter = slowWrites()

	var stuck *uart.PendingWrite

	err := c.Do(context.Background(), func(ctx context.Context, c *uart.Client) error {
		if err := c.ScheduleWrite([]byte("first")).Wait(ctx); err != nil {
			return err
		}

		stuck = c.ScheduleWrite([]byte("second"))

		return nil
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uart.StateDisconnected, c.State())
	require.NotNil(t, stuck)
	assert.ErrorIs(t, stuck.Wait(context.Background()), uart.ErrWriteCancelled)
}

func TestDo_DisconnectsOnPanic(t *testing.T) {
	transport := bletest.NewTransport(loopbackPeripheral(target.String(), "ILLUMI-1"))
	c := uart.NewClient(transport, target)
	c.ConnectOptions = fastOptions(1)

	assert.Panics(t, func() {
		_ = c.Do(context.Background(), func(context.Context, *uart.Client) error {
			panic("callback exploded")
		})
	})

	assert.Equal(t, uart.StateDisconnected, c.State())
}

func TestDiscoverSupported(t *testing.T) {
	other := loopbackPeripheral("11:22:33:44:55:66", "Thermometer")
	supported := loopbackPeripheral(target.String(), "ILLUMI-7A3F")
	supported.AdvertiseAfter = 10 * time.Millisecond

	c := uart.NewClient(bletest.NewTransport(other, supported), "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	adv, err := c.DiscoverSupported(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, target, adv.Identity)
	assert.Equal(t, target, c.Target())
}

func TestDiscoverSupported_NothingFound(t *testing.T) {
	c := uart.NewClient(bletest.NewTransport(loopbackPeripheral(target.String(), "Thermometer")), "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.DiscoverSupported(ctx, []string{"illumi"})

	require.ErrorIs(t, err, uart.ErrNoDevice)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, device.Identity(""), c.Target())
}
