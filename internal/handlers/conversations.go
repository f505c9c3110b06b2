package handlers

import (
  "net/http"
  "strconv"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/middleware"
  "github.com/lulai-platform/lulai-backend/internal/repos"
)

type ConversationHandler struct {
  log      *logger.Logger
  convRepo repos.ConversationRepo
}

func NewConversationHandler(convRepo repos.ConversationRepo, baseLog *logger.Logger) *ConversationHandler {
  return &ConversationHandler{
    log:      baseLog.With("handler", "ConversationHandler"),
    convRepo: convRepo,
  }
}

// List returns the tenant's logged chat turns, newest first, optionally
// filtered to a single end user.
func (h *ConversationHandler) List(c *gin.Context) {
  tenantKey, ok := middleware.TenantKey(c)
  if !ok {
    RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument),
      errs.E(errs.KindInvalidArgument, "list conversations", "API key is required", nil))
    return
  }

  endUserID := strings.TrimSpace(c.Query("endUserId"))
  limit := 0
  if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
    parsed, err := strconv.Atoi(raw)
    if err != nil || parsed < 0 {
      RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument),
        errs.E(errs.KindInvalidArgument, "list conversations", "limit must be a non-negative integer", nil))
      return
    }
    limit = parsed
  }

  turns, err := h.convRepo.ListTurns(c.Request.Context(), tenantKey, endUserID, limit)
  if err != nil {
    RespondAppError(c, err)
    return
  }

  RespondOK(c, gin.H{"conversations": turns})
}
