package middleware

import (
  "strings"
  "github.com/gin-gonic/gin"
)

const tenantKeyContextKey = "tenantKey"

// ExtractAPIKey pulls the store's API key from the X-API-Key header or the
// apiKey query parameter. Widget requests may instead carry the key in the
// request body; handlers fall back to that themselves.
func ExtractAPIKey() gin.HandlerFunc {
  return func(c *gin.Context) {
    key := strings.TrimSpace(c.GetHeader("X-API-Key"))
    if key == "" {
      key = strings.TrimSpace(c.Query("apiKey"))
    }
    if key != "" {
      c.Set(tenantKeyContextKey, key)
    }
    c.Next()
  }
}

// TenantKey returns the API key extracted by ExtractAPIKey.
func TenantKey(c *gin.Context) (string, bool) {
  v, ok := c.Get(tenantKeyContextKey)
  if !ok {
    return "", false
  }
  key, ok := v.(string)
  if !ok || key == "" {
    return "", false
  }
  return key, true
}
