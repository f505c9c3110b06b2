package types

import (
  "time"
)

// PromptPolicy is a tenant's custom system-prompt override. One row per
// tenant, upserted independently of product chunks.
type PromptPolicy struct {
  TenantKey   string      `gorm:"column:tenant_key;primaryKey" json:"tenant_key"`
  Content     string      `gorm:"column:content;not null" json:"content"`
  CreatedAt   time.Time   `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (PromptPolicy) TableName() string {
  return "prompt_policy"
}
