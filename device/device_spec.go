package device

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// DeviceSpec is a device described on the command line as `key=value,key=value`.
type DeviceSpec map[string]string

const (
  DeviceSpecFieldName = "name"
  DeviceSpecFieldAddress = "addr"
)

func NewDeviceSpec(s string) DeviceSpec {
  spec := DeviceSpec{}
  entries := strings.Split(s, ",")

  for _, entry := range entries {
    parts := strings.SplitN(entry, "=", 2)

    if len(parts) != 2 {
      log.Warn().Str("Entry", entry).Msg("Skipping invalid device spec entry")
      continue
    }

    spec[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
  }

  return spec
}

func (ds DeviceSpec) Name() string {
  return ds[DeviceSpecFieldName]
}

func (ds DeviceSpec) Addr() string {
  return ds[DeviceSpecFieldAddress]
}

// Identity returns the identity of the described device. The address is mandatory.
func (ds DeviceSpec) Identity() (Identity, error) {
  addr := ds.Addr()

  if addr == "" {
    return "", fmt.Errorf("device spec %v: missing %q", ds, DeviceSpecFieldAddress)
  }

  return NewIdentity(addr), nil
}

// DisplayName returns the configured name, or one derived from the address.
func (ds DeviceSpec) DisplayName() string {
  if name := ds.Name(); name != "" {
    return name
  }

  return "uart-" + strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(ds.Addr()))
}

// *flag.Value collecting multiple specs.
type DeviceSpecList []DeviceSpec

func (l *DeviceSpecList) String() string {
  parts := make([]string, len(*l))

  for i, ds := range *l {
    parts[i] = ds.Addr()
  }

  return strings.Join(parts, ";")
}

func (l *DeviceSpecList) Set(v string) error {
  ds := NewDeviceSpec(v)

  if _, err := ds.Identity(); err != nil {
    return err
  }

  *l = append(*l, ds)

  return nil
}
