package device

import (
	"fmt"
	"net"
	"strings"

	"github.com/go-ble/ble"
)

// Identity is the stable address of a BLE peripheral: a MAC address on Linux,
// a CoreBluetooth UUID on macOS. It is always stored in lower case so it can be
// used as a map key regardless of how the radio stack formats it.
type Identity string

func NewIdentity(addr string) Identity {
  return Identity(strings.ToLower(strings.TrimSpace(addr)))
}

func (id Identity) String() string {
  return string(id)
}

// HardwareAddr parses the identity as a MAC address. Fails for CoreBluetooth UUIDs.
func (id Identity) HardwareAddr() (net.HardwareAddr, error) {
  return net.ParseMAC(string(id))
}

// Advertisement is a single advertisement received from a peripheral.
type Advertisement struct {
  Identity Identity
  Name string
  Services []ble.UUID
  RSSI int
  Connectable bool
}

// FromBleAdvertisement converts a go-ble advertisement.
func FromBleAdvertisement(a ble.Advertisement) Advertisement {
  services := make([]ble.UUID, 0, len(a.Services())+len(a.OverflowService()))
  services = append(services, a.Services()...)
  services = append(services, a.OverflowService()...)

  return Advertisement{
    Identity: NewIdentity(a.Addr().String()),
    Name: a.LocalName(),
    Services: services,
    RSSI: a.RSSI(),
    Connectable: a.Connectable(),
  }
}

func (a Advertisement) HasService(uuid ble.UUID) bool {
  for _, s := range a.Services {
    if s.Equal(uuid) {
      return true
    }
  }

  return false
}

func (a Advertisement) String() string {
  return fmt.Sprintf("device[name=%q, addr=%v]", a.Name, a.Identity)
}
