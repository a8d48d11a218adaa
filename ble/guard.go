package ble

import (
	"context"
	"fmt"

	"github.com/robertof/go-nordic-uart/device"
	"github.com/rs/zerolog/log"
)

type guarded[T any] struct {
  val T
  err error
}

// within runs op aside and returns when either op or ctx is done, whichever comes first.
// When ctx wins, late is called with op's result once it arrives.
func within[T any](ctx context.Context, op func() (T, error), late func(T, error)) (T, error) {
  ch := make(chan guarded[T], 1)

  go func() {
    var r guarded[T]

    defer func() {
      if p := recover(); p != nil {
        r.err = fmt.Errorf("ble: transport panicked: %v", p)
      }

      ch <- r
    }()

    r.val, r.err = op()
  }()

  select {
  case r := <-ch:
    return r.val, r.err
  case <-ctx.Done():
    go func() {
      r := <-ch
      late(r.val, r.err)
    }()

    var zero T
    return zero, ctx.Err()
  }
}

// ConnectWithin is t.Connect bounded by ctx even when the transport ignores it. A link
// that shows up after ctx is done gets disconnected.
func ConnectWithin(ctx context.Context, t Transport, id device.Identity) (Link, error) {
  link, err := within(ctx, func() (Link, error) {
    return t.Connect(ctx, id)
  }, func(link Link, err error) {
    if err == nil && link != nil {
      DisconnectQuietly(link, id)
    }
  })

  if err != nil {
    if ctx.Err() != nil {
      return nil, fmt.Errorf("ble: connecting to %v: %w", id, ctx.Err())
    }

    return nil, err
  }

  if link == nil {
    return nil, fmt.Errorf("ble: transport returned no link for %v", id)
  }

  return link, nil
}

// DiscoverServicesWithin is link.DiscoverServices bounded by ctx even when the link
// ignores it.
func DiscoverServicesWithin(ctx context.Context, link Link) ([]*Service, error) {
  return within(ctx, func() ([]*Service, error) {
    return link.DiscoverServices(ctx)
  }, func([]*Service, error) {})
}

// DisconnectQuietly closes link, only logging failures.
func DisconnectQuietly(link Link, id device.Identity) {
  if err := link.Disconnect(); err != nil {
    log.Debug().Err(err).Stringer("Device", id).Msg("ble: error while disconnecting, ignoring")
  }
}
