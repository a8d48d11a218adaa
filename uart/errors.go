package uart

import (
	"errors"

	"github.com/robertof/go-nordic-uart/utils"
)

var (
	ErrNoDevice               = errors.New("uart: no device to connect to")
	ErrConnectionExhausted    = errors.New("uart: connection attempts exhausted")
	ErrServiceNotFound        = errors.New("uart: device does not have the UART service " + ServiceUUIDString)
	ErrCharacteristicNotFound = errors.New("uart: device does not have the UART RX/TX characteristics")
	ErrNotConnected           = errors.New("uart: not connected to device")
	ErrWriteCancelled         = errors.New("uart: scheduled write cancelled")
)

// IsVerificationError reports whether err means the peripheral is structurally incompatible.
func IsVerificationError(err error) bool {
	return utils.ErrorIsAnyOf(err, ErrServiceNotFound, ErrCharacteristicNotFound)
}
