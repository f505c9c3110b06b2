package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
  "github.com/lulai-platform/lulai-backend/internal/utils"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "lulai", log)
  postgresSSL := utils.GetEnv("POSTGRES_SSLMODE", "disable", log)

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, postgresSSL)

  log.Info("Connecting to Postgres...")
  gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  for _, ext := range []string{"uuid-ossp", "vector"} {
    if err := gdb.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS %q;`, ext)).Error; err != nil {
      log.Error("Failed to enable extension", "extension", ext, "error", err)
      return nil, errs.E(errs.KindSchema, "enable extension "+ext, "", err)
    }
  }

  return &PostgresService{db: gdb, log: serviceLog}, nil
}

// EnsureSchema migrates every table once at boot. The tenant_key column
// replaces per-tenant DDL, so there is no concurrent-creation race to guard.
func (s *PostgresService) EnsureSchema() error {
  s.log.Info("Migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.ProductChunk{},
    &types.PromptPolicy{},
    &types.ConversationTurn{},
  )
  if err != nil {
    s.log.Error("Migration failed for postgres tables", "error", err)
    return errs.E(errs.KindSchema, "migrate tables", "", err)
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
