package utils

import (
  "strings"
)

// SanitizeTenantKey lowers an opaque API key into a channel-safe identifier
// (alphanumerics kept, everything else becomes "_"). Data rows are scoped by
// the raw key, so a sanitization collision only merges two progress streams,
// never two catalogs.
func SanitizeTenantKey(apiKey string) string {
  var b strings.Builder
  for _, r := range apiKey {
    switch {
    case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
      b.WriteRune(r)
    case r >= 'A' && r <= 'Z':
      b.WriteRune(r + ('a' - 'A'))
    default:
      b.WriteRune('_')
    }
  }
  return b.String()
}
