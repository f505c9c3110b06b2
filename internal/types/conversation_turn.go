package types

import (
  "time"
  "github.com/google/uuid"
)

const (
  RoleUser      = "user"
  RoleAssistant = "assistant"

  // AnonymousEndUser is used when the widget does not identify the visitor.
  AnonymousEndUser = "anonymous"
)

// ConversationTurn is one logged message. Append-only; read by the
// analytics/admin surfaces, never mutated here.
type ConversationTurn struct {
  ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  TenantKey   string      `gorm:"column:tenant_key;not null;index:idx_conversation_turn_lookup,priority:1" json:"tenant_key"`
  EndUserID   string      `gorm:"column:end_user_id;not null;index:idx_conversation_turn_lookup,priority:2" json:"end_user_id"`
  Role        string      `gorm:"column:role;not null" json:"role"`
  Content     string      `gorm:"column:content;not null" json:"content"`
  CreatedAt   time.Time   `gorm:"not null;default:now();index:idx_conversation_turn_lookup,priority:3" json:"created_at"`
}

func (ConversationTurn) TableName() string {
  return "conversation_turn"
}
