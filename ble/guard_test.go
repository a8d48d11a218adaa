package ble_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertof/go-nordic-uart/ble"
	"github.com/robertof/go-nordic-uart/ble/bletest"
	"github.com/robertof/go-nordic-uart/device"
)

const peer = device.Identity("aa:bb:cc:dd:ee:ff")

func peripheral() *bletest.Peripheral {
  return &bletest.Peripheral{
    Advertisement: bletest.Advertisement(peer.String(), "ILLUMI-1"),
    Services: bletest.UARTServices(),
  }
}

func TestConnectWithin(t *testing.T) {
  transport := bletest.NewTransport(peripheral())

  link, err := ble.ConnectWithin(context.Background(), transport, peer)

  if err != nil || link == nil {
    t.Fatalf("ConnectWithin(): got %v, %v", link, err)
  }

  services, err := ble.DiscoverServicesWithin(context.Background(), link)

  if err != nil || len(services) != len(bletest.UARTServices()) {
    t.Fatalf("DiscoverServicesWithin(): got %d services, %v", len(services), err)
  }
}

func TestConnectWithin_StalledTransport(t *testing.T) {
  p := peripheral()
  p.Stall = 300 * time.Millisecond
  transport := bletest.NewTransport(p)

  ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
  defer cancel()

  start := time.Now()
  _, err := ble.ConnectWithin(ctx, transport, peer)

  if !errors.Is(err, context.DeadlineExceeded) {
    t.Fatalf("ConnectWithin(): got %v, wanted a deadline error", err)
  }

  if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
    t.Fatalf("ConnectWithin() returned after %v", elapsed)
  }

  deadline := time.Now().Add(2 * time.Second)

  for time.Now().Before(deadline) {
    if links := transport.Links(); len(links) == 1 && links[0].Disconnected() {
      return
    }

    time.Sleep(10 * time.Millisecond)
  }

  t.Fatal("late link was not disconnected")
}

func TestConnectWithin_Panic(t *testing.T) {
  p := peripheral()
  p.Panic = true

  _, err := ble.ConnectWithin(context.Background(), bletest.NewTransport(p), peer)

  if err == nil {
    t.Fatal("ConnectWithin(): expected an error from a panicking transport")
  }
}

func TestDiscoverServicesWithin_StalledLink(t *testing.T) {
  p := peripheral()
  p.DiscoverStall = 300 * time.Millisecond

  link, err := ble.ConnectWithin(context.Background(), bletest.NewTransport(p), peer)

  if err != nil {
    t.Fatalf("ConnectWithin(): %v", err)
  }

  ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
  defer cancel()

  if _, err := ble.DiscoverServicesWithin(ctx, link); !errors.Is(err, context.DeadlineExceeded) {
    t.Fatalf("DiscoverServicesWithin(): got %v, wanted a deadline error", err)
  }
}
