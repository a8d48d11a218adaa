package tinygo

import (
	"github.com/robertof/go-nordic-uart/device"
	"tinygo.org/x/bluetooth"
)

// On macOS, identities are CoreBluetooth peripheral UUIDs rather than MAC addresses.
func parseAddress(id device.Identity) (bluetooth.Address, error) {
	var addr bluetooth.Address
	addr.Set(id.String())

	return addr, nil
}
