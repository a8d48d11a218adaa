package tinygo

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

func readCharacteristic(char bluetooth.DeviceCharacteristic) ([]byte, error) {
	buf := make([]byte, maxValueLength)
	n, err := char.Read(buf)

	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}

// BlueZ only exposes write-without-response through the library.
func writeCharacteristic(_ bluetooth.DeviceCharacteristic, _ []byte) (int, error) {
	return 0, fmt.Errorf("%w: acknowledged writes", ErrUnsupported)
}
