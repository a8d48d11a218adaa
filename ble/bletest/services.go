package bletest

import (
	"github.com/go-ble/ble"
	"github.com/robertof/go-nordic-uart/device"
)

// Nordic UART UUIDs, spelled out here so the package does not depend on its users.
const (
	serviceUUID = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	rxUUID      = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
	txUUID      = "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"
)

// UARTServices returns a GATT profile exposing a complete Nordic UART service next to a
// battery service.
func UARTServices() []*ble.Service {
	return []*ble.Service{
		ble.NewService(ble.UUID16(0x180f)),
		uartService(true, true),
	}
}

// PartialUARTServices returns a profile with the UART service but only the requested
// characteristics.
func PartialUARTServices(rx, tx bool) []*ble.Service {
	return []*ble.Service{uartService(rx, tx)}
}

// OtherServices returns a profile without the UART service.
func OtherServices() []*ble.Service {
	return []*ble.Service{
		ble.NewService(ble.UUID16(0x180f)),
		ble.NewService(ble.UUID16(0x180a)),
	}
}

func uartService(rx, tx bool) *ble.Service {
	s := ble.NewService(ble.MustParse(serviceUUID))

	if rx {
		s.AddCharacteristic(ble.NewCharacteristic(ble.MustParse(rxUUID))).Property =
			ble.CharWrite | ble.CharWriteNR
	}

	if tx {
		s.AddCharacteristic(ble.NewCharacteristic(ble.MustParse(txUUID))).Property =
			ble.CharRead | ble.CharNotify
	}

	return s
}

// Advertisement is a connectable advertisement for a device at addr.
func Advertisement(addr string, name string, services ...ble.UUID) device.Advertisement {
	return device.Advertisement{
		Identity:    device.NewIdentity(addr),
		Name:        name,
		Services:    services,
		RSSI:        -60,
		Connectable: true,
	}
}
