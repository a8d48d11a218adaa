package uart

import (
	"github.com/pkg/errors"
	"github.com/robertof/go-nordic-uart/ble"
	"github.com/rs/zerolog/log"
)

// Endpoints are the GATT attributes of a verified UART service. Only Verify creates them,
// and only with both characteristics present.
type Endpoints struct {
	service *ble.Service
	rx      *ble.Characteristic
	tx      *ble.Characteristic
}

func (e Endpoints) Service() *ble.Service { return e.service }

// RX is the characteristic the client writes to.
func (e Endpoints) RX() *ble.Characteristic { return e.rx }

// TX is the characteristic the client reads from.
func (e Endpoints) TX() *ble.Characteristic { return e.tx }

func (e Endpoints) valid() bool {
	return e.service != nil && e.rx != nil && e.tx != nil
}

// HasService reports whether services contains the UART service, regardless of its
// characteristics.
func HasService(services []*ble.Service) bool {
	return findService(services) != nil
}

func findService(services []*ble.Service) *ble.Service {
	for _, svc := range services {
		if svc != nil && svc.UUID.Equal(ServiceUUID) {
			return svc
		}
	}

	return nil
}

func findCharacteristic(svc *ble.Service, uuid ble.UUID) *ble.Characteristic {
	for _, c := range svc.Characteristics {
		if c != nil && c.UUID.Equal(uuid) {
			return c
		}
	}

	return nil
}

// Verify locates the UART service and its RX/TX characteristics in a link's service list.
func Verify(services []*ble.Service) (Endpoints, error) {
	for _, svc := range services {
		if svc == nil {
			continue
		}

		log.Debug().Stringer("UUID", svc.UUID).Msg("uart: service found")

		for _, c := range svc.Characteristics {
			if c != nil {
				log.Trace().
					Stringer("Service", svc.UUID).
					Stringer("UUID", c.UUID).
					Uint8("Property", uint8(c.Property)).
					Msg("uart: characteristic found")
			}
		}
	}

	svc := findService(services)

	if svc == nil {
		return Endpoints{}, ErrServiceNotFound
	}

	e := Endpoints{
		service: svc,
		rx:      findCharacteristic(svc, RXCharacteristicUUID),
		tx:      findCharacteristic(svc, TXCharacteristicUUID),
	}

	if e.rx == nil || e.tx == nil {
		return Endpoints{}, errors.Wrapf(ErrCharacteristicNotFound, "rx present: %v, tx present: %v",
			e.rx != nil, e.tx != nil)
	}

	return e, nil
}
