package services

import (
  "context"
  "sync"
  "time"

  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/repos"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

// ConversationLogService persists chat turns off the request path. Logging
// is best effort: a full buffer or a failed insert is logged and dropped,
// never surfaced to the end user's stream.
type ConversationLogService interface {
  Log(tenantKey string, endUserID string, role string, content string)
  Close()
}

type conversationLogService struct {
  log      *logger.Logger
  convRepo repos.ConversationRepo

  queue chan *types.ConversationTurn
  wg    sync.WaitGroup

  mu     sync.RWMutex
  closed bool
}

const convLogWriteTimeout = 10 * time.Second

func NewConversationLogService(convRepo repos.ConversationRepo, baseLog *logger.Logger, bufferSize int) ConversationLogService {
  if bufferSize <= 0 {
    bufferSize = 256
  }
  s := &conversationLogService{
    log:      baseLog.With("service", "ConversationLogService"),
    convRepo: convRepo,
    queue:    make(chan *types.ConversationTurn, bufferSize),
  }
  s.wg.Add(1)
  go s.worker()
  return s
}

func (s *conversationLogService) Log(tenantKey string, endUserID string, role string, content string) {
  turn := &types.ConversationTurn{
    TenantKey: tenantKey,
    EndUserID: endUserID,
    Role:      role,
    Content:   content,
  }
  s.mu.RLock()
  defer s.mu.RUnlock()
  if s.closed {
    s.log.Warn("conversation log closed; dropping turn",
      "tenant", tenantKey, "role", role)
    return
  }
  select {
  case s.queue <- turn:
  default:
    s.log.Warn("conversation log buffer full; dropping turn",
      "tenant", tenantKey, "role", role)
  }
}

func (s *conversationLogService) worker() {
  defer s.wg.Done()
  for turn := range s.queue {
    ctx, cancel := context.WithTimeout(context.Background(), convLogWriteTimeout)
    if err := s.convRepo.Append(ctx, turn); err != nil {
      s.log.Warn("failed to persist conversation turn",
        "tenant", turn.TenantKey, "role", turn.Role, "error", err)
    }
    cancel()
  }
}

// Close drains queued turns and stops the worker.
func (s *conversationLogService) Close() {
  s.mu.Lock()
  if !s.closed {
    s.closed = true
    close(s.queue)
  }
  s.mu.Unlock()
  s.wg.Wait()
}
