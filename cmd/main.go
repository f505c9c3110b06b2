package main

import (
  "context"
  "fmt"
  "os"

  "github.com/joho/godotenv"

  "github.com/lulai-platform/lulai-backend/internal/adapters"
  "github.com/lulai-platform/lulai-backend/internal/config"
  "github.com/lulai-platform/lulai-backend/internal/db"
  "github.com/lulai-platform/lulai-backend/internal/handlers"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/repos"
  "github.com/lulai-platform/lulai-backend/internal/server"
  "github.com/lulai-platform/lulai-backend/internal/services"
  "github.com/lulai-platform/lulai-backend/internal/sse"
  "github.com/lulai-platform/lulai-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Config
  configPath := utils.GetEnv("CONFIG_PATH", "config.yaml", log)
  cfg, err := config.Load(configPath)
  if err != nil {
    log.Error("Could not load config", "path", configPath, "error", err)
    os.Exit(1)
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.EnsureSchema(); err != nil {
    log.Error("Postgres schema migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  chunkRepo := repos.NewChunkRepo(thePG, log)
  promptRepo := repos.NewPromptRepo(thePG, log)
  conversationRepo := repos.NewConversationRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  // Services
  log.Info("Setting up Services from main...")
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Error("Could not init OpenAIClient", "error", err)
    os.Exit(1)
  }
  progressBus, err := services.NewProgressBus(log, sseHub)
  if err != nil {
    log.Error("Could not init ProgressBus", "error", err)
    os.Exit(1)
  }
  defer progressBus.Close()
  if err := progressBus.StartForwarder(context.Background()); err != nil {
    log.Error("Could not start progress forwarder", "error", err)
    os.Exit(1)
  }

  registry := adapters.DefaultRegistry(log, nil)
  ingestionService := services.NewIngestionService(
    registry,
    openaiClient,
    chunkRepo,
    promptRepo,
    progressBus,
    cfg.Chunking,
    cfg.Ingestion,
    log,
  )
  retrievalService := services.NewRetrievalService(openaiClient, chunkRepo, promptRepo, cfg.Retrieval, log)
  conversationLog := services.NewConversationLogService(conversationRepo, log, cfg.Logging.BufferSize)
  defer conversationLog.Close()
  chatService := services.NewChatService(openaiClient, retrievalService, conversationLog, log)

  // Handlers
  log.Info("Setting up handlers from main...")
  integrationHandler := handlers.NewIntegrationHandler(ingestionService, progressBus, sseHub, log)
  chatHandler := handlers.NewChatHandler(chatService, log)
  promptHandler := handlers.NewPromptHandler(promptRepo, log)
  conversationHandler := handlers.NewConversationHandler(conversationRepo, log)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    IntegrationHandler:  integrationHandler,
    ChatHandler:         chatHandler,
    PromptHandler:       promptHandler,
    ConversationHandler: conversationHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
