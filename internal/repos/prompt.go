package repos

import (
  "context"
  "strings"
  "time"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

type PromptRepo interface {
  // Get returns the tenant's prompt override, or nil when unset.
  Get(ctx context.Context, tenantKey string) (*types.PromptPolicy, error)
  // Set inserts or replaces the tenant's prompt override.
  Set(ctx context.Context, tenantKey string, content string) error
}

type promptRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPromptRepo(db *gorm.DB, baseLog *logger.Logger) PromptRepo {
  return &promptRepo{db: db, log: baseLog.With("repo", "PromptRepo")}
}

func (r *promptRepo) Get(ctx context.Context, tenantKey string) (*types.PromptPolicy, error) {
  var policy types.PromptPolicy
  err := r.db.WithContext(ctx).
    Where("tenant_key = ?", tenantKey).
    Limit(1).
    Find(&policy).Error
  if err != nil {
    if isMissingRelation(err) {
      return nil, nil
    }
    return nil, classifyStoreErr("get prompt policy", tenantKey, err)
  }
  if policy.TenantKey == "" || strings.TrimSpace(policy.Content) == "" {
    return nil, nil
  }
  return &policy, nil
}

func (r *promptRepo) Set(ctx context.Context, tenantKey string, content string) error {
  policy := types.PromptPolicy{
    TenantKey: tenantKey,
    Content:   content,
    UpdatedAt: time.Now(),
  }
  err := r.db.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "tenant_key"}},
      DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
    }).
    Create(&policy).Error
  if err != nil {
    return classifyStoreErr("set prompt policy", tenantKey, err)
  }
  return nil
}
