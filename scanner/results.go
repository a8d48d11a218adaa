package scanner

import (
  "fmt"
  "sync"

  "github.com/robertof/go-nordic-uart/device"
  "golang.org/x/exp/maps"
)

// Discovery is a device found to expose the UART service.
type Discovery struct {
  device.Advertisement

  // Set when the service was confirmed by connecting to the device rather than read from
  // its advertisement.
  Probed bool
}

func (d Discovery) String() string {
  method := "advertisement"

  if d.Probed {
    method = "probe"
  }

  return fmt.Sprintf("%v via %s", d.Advertisement, method)
}

// results only ever grows.
type results struct {
  mu sync.Mutex
  devices map[device.Identity]Discovery
}

func (r *results) add(d Discovery) bool {
  r.mu.Lock()
  defer r.mu.Unlock()

  if r.devices == nil {
    r.devices = make(map[device.Identity]Discovery)
  }

  if _, ok := r.devices[d.Identity]; ok {
    return false
  }

  r.devices[d.Identity] = d

  return true
}

func (r *results) len() int {
  r.mu.Lock()
  defer r.mu.Unlock()

  return len(r.devices)
}

// Devices returns a copy of what has been discovered so far.
func (r *results) Devices() map[device.Identity]Discovery {
  r.mu.Lock()
  defer r.mu.Unlock()

  if r.devices == nil {
    return make(map[device.Identity]Discovery)
  }

  return maps.Clone(r.devices)
}
