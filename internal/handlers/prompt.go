package handlers

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/middleware"
  "github.com/lulai-platform/lulai-backend/internal/repos"
)

type PromptHandler struct {
  log        *logger.Logger
  promptRepo repos.PromptRepo
}

func NewPromptHandler(promptRepo repos.PromptRepo, baseLog *logger.Logger) *PromptHandler {
  return &PromptHandler{
    log:        baseLog.With("handler", "PromptHandler"),
    promptRepo: promptRepo,
  }
}

type updatePromptRequest struct {
  APIKey       string `json:"apiKey"`
  CustomPrompt string `json:"customPrompt"`
}

// Update replaces the tenant's system-prompt override without rerunning
// the integration.
func (h *PromptHandler) Update(c *gin.Context) {
  var req updatePromptRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument), err)
    return
  }

  tenantKey, ok := middleware.TenantKey(c)
  if !ok {
    tenantKey = strings.TrimSpace(req.APIKey)
  }
  if tenantKey == "" {
    RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument),
      errs.E(errs.KindInvalidArgument, "update prompt", "API key is required", nil))
    return
  }
  if strings.TrimSpace(req.CustomPrompt) == "" {
    RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument),
      errs.E(errs.KindInvalidArgument, "update prompt", "customPrompt is required", nil))
    return
  }

  if err := h.promptRepo.Set(c.Request.Context(), tenantKey, req.CustomPrompt); err != nil {
    RespondAppError(c, err)
    return
  }

  RespondOK(c, gin.H{"message": "Prompt updated successfully"})
}
