package handlers

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/middleware"
  "github.com/lulai-platform/lulai-backend/internal/services"
  "github.com/lulai-platform/lulai-backend/internal/sse"
)

type IntegrationHandler struct {
  log       *logger.Logger
  ingestion services.IngestionService
  bus       services.ProgressBus
  hub       *sse.SSEHub
}

func NewIntegrationHandler(ingestion services.IngestionService, bus services.ProgressBus, hub *sse.SSEHub, baseLog *logger.Logger) *IntegrationHandler {
  return &IntegrationHandler{
    log:       baseLog.With("handler", "IntegrationHandler"),
    ingestion: ingestion,
    bus:       bus,
    hub:       hub,
  }
}

type triggerIntegrationRequest struct {
  StoreName     string `json:"storeName"`
  ProductAPIURL string `json:"productApiUrl"`
  Platform      string `json:"platform"`
  APIKey        string `json:"apiKey"`
  Credential    string `json:"credential"`
  CustomPrompt  string `json:"customPrompt"`
}

// Trigger starts an ingestion run in the background and returns 202
// immediately; progress is streamed from the progress endpoint.
func (h *IntegrationHandler) Trigger(c *gin.Context) {
  var req triggerIntegrationRequest
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
      errs.E(errs.KindInvalidArgument, "trigger ingestion", "API key is required", nil))
    return
  }

  err := h.ingestion.Trigger(services.IngestionJob{
    TenantKey:      tenantKey,
    StoreName:      req.StoreName,
    SourceURL:      req.ProductAPIURL,
    Platform:       req.Platform,
    Credential:     req.Credential,
    PromptOverride: req.CustomPrompt,
  })
  if err != nil {
    RespondAppError(c, err)
    return
  }

  c.JSON(http.StatusAccepted, gin.H{"message": "Integration started"})
}

// Progress streams ingestion status updates for the caller's store. The
// recorded status history is replayed on connect, oldest first, so a client
// that subscribes after the run started still sees every stage.
func (h *IntegrationHandler) Progress(c *gin.Context) {
  tenantKey, ok := middleware.TenantKey(c)
  if !ok {
    RespondError(c, http.StatusBadRequest, string(errs.KindInvalidArgument),
      errs.E(errs.KindInvalidArgument, "stream progress", "API key is required", nil))
    return
  }

  channel := services.ProgressChannel(tenantKey)
  client := h.hub.NewSSEClient(tenantKey)
  h.hub.AddChannel(client, channel)
  defer h.hub.CloseClient(client)

  for _, status := range h.bus.History(c.Request.Context(), tenantKey) {
    select {
    case client.Outbound <- sse.SSEMessage{
      Channel: channel,
      Event:   sse.SSEEventIngestionProgress,
      Data:    map[string]string{"status": status},
    }:
    default:
    }
  }

  h.hub.ServeHTTP(c.Writer, c.Request, client)
}
