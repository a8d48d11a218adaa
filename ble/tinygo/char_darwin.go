package tinygo

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// CoreBluetooth reads are not exposed by the library.
func readCharacteristic(_ bluetooth.DeviceCharacteristic) ([]byte, error) {
	return nil, fmt.Errorf("%w: characteristic reads", ErrUnsupported)
}

func writeCharacteristic(char bluetooth.DeviceCharacteristic, data []byte) (int, error) {
	return char.Write(data)
}
