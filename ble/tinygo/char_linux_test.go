package tinygo

import (
	"errors"
	"testing"

	"tinygo.org/x/bluetooth"
)

func TestWriteCharacteristic_AcknowledgedUnsupported(t *testing.T) {
	n, err := writeCharacteristic(bluetooth.DeviceCharacteristic{}, []byte("hi"))

	if !errors.Is(err, ErrUnsupported) || n != 0 {
		t.Fatalf("writeCharacteristic(): got %d, %v, wanted ErrUnsupported", n, err)
	}
}
