package services

import (
  "context"
  "strings"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

// ChatService answers an end user's question over the tenant's ingested
// catalog, streaming the reply token by token.
type ChatService interface {
  // Stream runs retrieval, streams the completion through onDelta, and
  // logs both sides of the exchange. The assistant turn is only logged
  // once the full reply has been received; a canceled stream logs nothing
  // for the assistant.
  Stream(ctx context.Context, tenantKey string, endUserID string, messages []ChatMessage, onDelta func(string)) error
}

type chatService struct {
  log       *logger.Logger
  openai    OpenAIClient
  retrieval RetrievalService
  convLog   ConversationLogService
}

func NewChatService(openai OpenAIClient, retrieval RetrievalService, convLog ConversationLogService, baseLog *logger.Logger) ChatService {
  return &chatService{
    log:       baseLog.With("service", "ChatService"),
    openai:    openai,
    retrieval: retrieval,
    convLog:   convLog,
  }
}

func (s *chatService) Stream(ctx context.Context, tenantKey string, endUserID string, messages []ChatMessage, onDelta func(string)) error {
  if len(messages) == 0 {
    return errs.Tenant(errs.KindInvalidArgument, "chat", tenantKey, "no messages", nil)
  }
  latest := strings.TrimSpace(messages[len(messages)-1].Content)
  if latest == "" {
    return errs.Tenant(errs.KindInvalidArgument, "chat", tenantKey, "no message content provided", nil)
  }

  s.convLog.Log(tenantKey, endUserID, types.RoleUser, latest)

  contextChunks, systemPrompt, err := s.retrieval.BuildContext(ctx, tenantKey, latest)
  if err != nil {
    return err
  }
  s.log.Debug("retrieved context", "tenant", tenantKey, "chunks", len(contextChunks))

  completionMessages := make([]ChatMessage, 0, len(messages)+1)
  completionMessages = append(completionMessages, ChatMessage{
    Role:    "system",
    Content: systemPrompt,
  })
  completionMessages = append(completionMessages, messages...)

  full, err := s.openai.StreamChat(ctx, completionMessages, onDelta)
  if err != nil {
    // Partial replies are never logged; the next exchange should not see
    // an assistant turn the user never finished receiving.
    return err
  }

  s.convLog.Log(tenantKey, endUserID, types.RoleAssistant, full)
  return nil
}
