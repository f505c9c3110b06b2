package server

import (
  "os"
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/lulai-platform/lulai-backend/internal/handlers"
  "github.com/lulai-platform/lulai-backend/internal/middleware"
)

type RouterConfig struct {
  IntegrationHandler  *handlers.IntegrationHandler
  ChatHandler         *handlers.ChatHandler
  PromptHandler       *handlers.PromptHandler
  ConversationHandler *handlers.ConversationHandler
}

func allowedOrigins() []string {
  if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
    parts := strings.Split(raw, ",")
    origins := make([]string, 0, len(parts))
    for _, p := range parts {
      if p = strings.TrimSpace(p); p != "" {
        origins = append(origins, p)
      }
    }
    return origins
  }
  return []string{
    "http://localhost:80",
    "http://localhost:3000",
    "http://localhost:5174",
  }
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowedOrigins(),
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-API-Key"},
    AllowCredentials: true,
  }))

  router.Use(middleware.ExtractAPIKey())

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    api.POST("/integrations", cfg.IntegrationHandler.Trigger)
    api.GET("/integrations/progress", cfg.IntegrationHandler.Progress)
    api.POST("/chat", cfg.ChatHandler.Stream)
    api.PUT("/prompt", cfg.PromptHandler.Update)
    api.GET("/conversations", cfg.ConversationHandler.List)
  }

  return router
}
