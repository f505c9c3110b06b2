package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

type ConversationRepo interface {
  // Append writes one turn. The log is append-only; nothing here ever
  // mutates or deletes existing turns.
  Append(ctx context.Context, turn *types.ConversationTurn) error
  // ListTurns returns a tenant's turns newest-first, optionally filtered to
  // one end user.
  ListTurns(ctx context.Context, tenantKey string, endUserID string, limit int) ([]*types.ConversationTurn, error)
}

type conversationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
  return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Append(ctx context.Context, turn *types.ConversationTurn) error {
  if turn.EndUserID == "" {
    turn.EndUserID = types.AnonymousEndUser
  }
  if turn.ID == uuid.Nil {
    turn.ID = uuid.New()
  }
  if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
    return classifyStoreErr("append conversation turn", turn.TenantKey, err)
  }
  return nil
}

const defaultTurnListLimit = 100

func (r *conversationRepo) ListTurns(ctx context.Context, tenantKey string, endUserID string, limit int) ([]*types.ConversationTurn, error) {
  if limit <= 0 || limit > 1000 {
    limit = defaultTurnListLimit
  }
  q := r.db.WithContext(ctx).Where("tenant_key = ?", tenantKey)
  if endUserID != "" {
    q = q.Where("end_user_id = ?", endUserID)
  }
  var turns []*types.ConversationTurn
  if err := q.Order("created_at DESC").Limit(limit).Find(&turns).Error; err != nil {
    return nil, classifyStoreErr("list conversation turns", tenantKey, err)
  }
  if turns == nil {
    turns = []*types.ConversationTurn{}
  }
  return turns, nil
}
