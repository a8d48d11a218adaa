package tinygo

import (
	"fmt"

	"github.com/robertof/go-nordic-uart/device"
	"tinygo.org/x/bluetooth"
)

func parseAddress(id device.Identity) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(id.String())

	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("ble: failed to parse MAC address %q: %w", id, err)
	}

	return bluetooth.Address{
		MACAddress: bluetooth.MACAddress{
			MAC: mac,
		},
	}, nil
}
