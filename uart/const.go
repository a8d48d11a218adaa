// Package uart implements a client for the Nordic UART Service (NUS): connection management
// with retries, GATT verification and a byte-oriented read/write session.
package uart

import (
	"time"

	"github.com/robertof/go-nordic-uart/ble"
)

// RX and TX are named from the peripheral's perspective: the client writes to RX and
// reads from TX.
const (
	ServiceUUIDString          = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	RXCharacteristicUUIDString = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
	TXCharacteristicUUIDString = "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"
)

var (
	ServiceUUID          = ble.MustParseUUID(ServiceUUIDString)
	RXCharacteristicUUID = ble.MustParseUUID(RXCharacteristicUUIDString)
	TXCharacteristicUUID = ble.MustParseUUID(TXCharacteristicUUIDString)
)

const (
	DefaultRetries           = 3
	DefaultTimeoutPerAttempt = 5 * time.Second
	DefaultBackoff           = 500 * time.Millisecond
	DefaultDrainTimeout      = 5 * time.Second
)
