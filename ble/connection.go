//go:build linux

package ble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertof/go-nordic-uart/device"
	"github.com/rs/zerolog/log"
)

var (
  successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_ble_successful_connections_total",
  })
  failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_ble_failed_connections_total",
  })
  disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "nordic_uart_ble_disconnections_total",
  })
)

type link struct {
  client ble.Client
  id     device.Identity
}

func (h *Handle) Connect(ctx context.Context, id device.Identity) (Link, error) {
  c, err := h.dev.Dial(ctx, ble.NewAddr(id.String()))

  if err != nil {
    failedConnectionsCounter.Inc()
    return nil, errors.Wrapf(err, "ble: failed to dial %v", id)
  }

  successfulConnectionsCounter.Inc()
  log.Debug().Stringer("Addr", id).Msg("ble: successfully opened new connection to device")

  // count disconnections initiated by either side.
  go func() {
    <-c.Disconnected()

    disconnectsCounter.Inc()
    log.Debug().Stringer("Addr", id).Msg("ble: connection with device closed")
  }()

  return &link{client: c, id: id}, nil
}

// go-ble does not take contexts for GATT operations: run them aside and give up waiting
// when ctx is done. The operation itself keeps running until the stack times it out.
func await[T any](ctx context.Context, op func() (T, error)) (res T, err error) {
  if err := ctx.Err(); err != nil {
    return res, err
  }

  type result struct {
    val T
    err error
  }

  ch := make(chan result, 1)

  go func() {
    v, err := op()
    ch <- result{v, err}
  }()

  select {
  case <-ctx.Done():
    return res, ctx.Err()
  case r := <-ch:
    return r.val, r.err
  }
}

func (l *link) DiscoverServices(ctx context.Context) ([]*Service, error) {
  p, err := await(ctx, func() (*ble.Profile, error) {
    return l.client.DiscoverProfile(true)
  })

  if err != nil {
    return nil, errors.Wrapf(err, "ble: cannot discover profile for %v", l.id)
  }

  return p.Services, nil
}

func (l *link) ReadCharacteristic(ctx context.Context, c *Characteristic) ([]byte, error) {
  return await(ctx, func() ([]byte, error) {
    return l.client.ReadCharacteristic(c)
  })
}

func (l *link) WriteCharacteristic(ctx context.Context, c *Characteristic, data []byte, ack bool) error {
  _, err := await(ctx, func() (struct{}, error) {
    return struct{}{}, l.client.WriteCharacteristic(c, data, !ack)
  })

  return err
}

func (l *link) Disconnect() error {
  select {
  case <-l.client.Disconnected():
    // already gone.
    return nil
  default:
  }

  return l.client.CancelConnection()
}
