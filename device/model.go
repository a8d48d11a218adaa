package device

import "strings"

// SupportedModels lists the local-name prefixes of peripherals known to speak
// Nordic UART. Matching is case-insensitive.
var SupportedModels = []string{
  "ILLUMI",
}

// IsSupportedModel reports whether name starts with one of models.
func IsSupportedModel(name string, models []string) bool {
  name = strings.ToUpper(strings.TrimSpace(name))

  if name == "" {
    return false
  }

  for _, m := range models {
    if m != "" && strings.HasPrefix(name, strings.ToUpper(m)) {
      return true
    }
  }

  return false
}
