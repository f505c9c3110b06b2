package handlers

import (
  "encoding/json"
  "fmt"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/middleware"
  "github.com/lulai-platform/lulai-backend/internal/services"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

type ChatHandler struct {
  log  *logger.Logger
  chat services.ChatService
}

func NewChatHandler(chat services.ChatService, baseLog *logger.Logger) *ChatHandler {
  return &ChatHandler{
    log:  baseLog.With("handler", "ChatHandler"),
    chat: chat,
  }
}

type chatRequest struct {
  Messages  []services.ChatMessage `json:"messages"`
  APIKey    string                 `json:"apiKey"`
  EndUserID string                 `json:"endUserId"`
}

type chatDelta struct {
  Role    string `json:"role"`
  Content string `json:"content"`
}

// Stream answers the latest user message as a server-sent event stream:
// one data frame per token fragment, then an empty object as the
// end-of-stream sentinel.
func (h *ChatHandler) Stream(c *gin.Context) {
  var req chatRequest
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
      errs.E(errs.KindInvalidArgument, "chat", "API key is required", nil))
    return
  }

  endUserID := strings.TrimSpace(req.EndUserID)
  if endUserID == "" {
    endUserID = types.AnonymousEndUser
  }

  flusher, ok := c.Writer.(http.Flusher)
  if !ok {
    RespondError(c, http.StatusInternalServerError, "streaming_unsupported",
      fmt.Errorf("response writer does not support streaming"))
    return
  }

  wroteAny := false
  writeDelta := func(delta string) {
    if !wroteAny {
      c.Writer.Header().Set("Content-Type", "text/event-stream")
      c.Writer.Header().Set("Cache-Control", "no-cache")
      c.Writer.Header().Set("Connection", "keep-alive")
      c.Writer.WriteHeader(http.StatusOK)
      wroteAny = true
    }
    payload, err := json.Marshal(chatDelta{Role: types.RoleAssistant, Content: delta})
    if err != nil {
      return
    }
    fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
    flusher.Flush()
  }

  err := h.chat.Stream(c.Request.Context(), tenantKey, endUserID, req.Messages, writeDelta)
  if err != nil {
    if c.Request.Context().Err() != nil {
      // Client went away; nothing left to write.
      return
    }
    h.log.Error("chat stream failed", "tenant", tenantKey, "error", err)
    if !wroteAny {
      RespondAppError(c, err)
    }
    return
  }

  if !wroteAny {
    c.Writer.Header().Set("Content-Type", "text/event-stream")
    c.Writer.Header().Set("Cache-Control", "no-cache")
    c.Writer.Header().Set("Connection", "keep-alive")
    c.Writer.WriteHeader(http.StatusOK)
  }
  fmt.Fprint(c.Writer, "data: {}\n\n")
  flusher.Flush()
}
