package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "sync"
  "time"

  "github.com/pgvector/pgvector-go"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/lulai-platform/lulai-backend/internal/adapters"
  "github.com/lulai-platform/lulai-backend/internal/chunker"
  "github.com/lulai-platform/lulai-backend/internal/config"
  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/repos"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

// IngestionJob describes one integration run for a tenant's store.
type IngestionJob struct {
  TenantKey      string `json:"-"`
  StoreName      string `json:"store_name"`
  SourceURL      string `json:"product_api_url"`
  Platform       string `json:"platform"`
  Credential     string `json:"-"`
  PromptOverride string `json:"custom_prompt"`
}

type IngestionService interface {
  // Trigger validates the job, rejects it if the tenant already has a run
  // in flight, and starts the run in the background.
  Trigger(job IngestionJob) error
  // Run executes the full pipeline synchronously: fetch, chunk, embed,
  // replace stored chunks, apply the prompt override.
  Run(ctx context.Context, job IngestionJob) error
}

type ingestionService struct {
  log        *logger.Logger
  registry   *adapters.Registry
  openai     OpenAIClient
  chunkRepo  repos.ChunkRepo
  promptRepo repos.PromptRepo
  bus        ProgressBus

  chunking  config.ChunkingConfig
  ingestion config.IngestionConfig

  mu       sync.Mutex
  inFlight map[string]bool
}

// Generous ceiling; large catalogs with per-chunk embedding calls are slow.
const ingestionRunTimeout = 30 * time.Minute

func NewIngestionService(
  registry *adapters.Registry,
  openai OpenAIClient,
  chunkRepo repos.ChunkRepo,
  promptRepo repos.PromptRepo,
  bus ProgressBus,
  chunking config.ChunkingConfig,
  ingestion config.IngestionConfig,
  baseLog *logger.Logger,
) IngestionService {
  return &ingestionService{
    log:        baseLog.With("service", "IngestionService"),
    registry:   registry,
    openai:     openai,
    chunkRepo:  chunkRepo,
    promptRepo: promptRepo,
    bus:        bus,
    chunking:   chunking,
    ingestion:  ingestion,
    inFlight:   make(map[string]bool),
  }
}

func (s *ingestionService) Trigger(job IngestionJob) error {
  if strings.TrimSpace(job.TenantKey) == "" {
    return errs.E(errs.KindInvalidArgument, "trigger ingestion", "missing api key", nil)
  }
  if strings.TrimSpace(job.SourceURL) == "" {
    return errs.Tenant(errs.KindInvalidArgument, "trigger ingestion", job.TenantKey, "missing product api url", nil)
  }
  if _, err := s.registry.Lookup(job.Platform); err != nil {
    return err
  }

  s.mu.Lock()
  if s.inFlight[job.TenantKey] {
    s.mu.Unlock()
    return errs.Tenant(errs.KindConflict, "trigger ingestion", job.TenantKey,
      "an integration is already running for this store", nil)
  }
  s.inFlight[job.TenantKey] = true
  s.mu.Unlock()

  go func() {
    defer func() {
      s.mu.Lock()
      delete(s.inFlight, job.TenantKey)
      s.mu.Unlock()
    }()
    ctx, cancel := context.WithTimeout(context.Background(), ingestionRunTimeout)
    defer cancel()
    if err := s.Run(ctx, job); err != nil {
      s.log.Error("ingestion run failed",
        "tenant", job.TenantKey, "platform", job.Platform, "error", err)
    }
  }()

  return nil
}

func (s *ingestionService) Run(ctx context.Context, job IngestionJob) error {
  s.bus.Publish(ctx, job.TenantKey, "Fetching product data...")

  adapter, err := s.registry.Lookup(job.Platform)
  if err != nil {
    s.fail(ctx, job.TenantKey, err)
    return err
  }

  records, err := adapter.FetchRecords(ctx, adapters.Source{
    URL:        job.SourceURL,
    Credential: job.Credential,
  })
  if err != nil {
    s.fail(ctx, job.TenantKey, err)
    return err
  }
  if len(records) == 0 {
    err := errs.Tenant(errs.KindInvalidSource, "run ingestion", job.TenantKey,
      "source returned no records", nil)
    s.fail(ctx, job.TenantKey, err)
    return err
  }

  s.bus.Publish(ctx, job.TenantKey, "Processing and storing data...")

  chunks, embedded, err := s.embedRecords(ctx, job.TenantKey, records)
  if err != nil {
    s.fail(ctx, job.TenantKey, err)
    return err
  }
  if embedded == 0 {
    err := errs.Tenant(errs.KindEmbedding, "run ingestion", job.TenantKey,
      "embedding failed for every record", nil)
    s.fail(ctx, job.TenantKey, err)
    return err
  }

  if err := s.chunkRepo.ReplaceAll(ctx, job.TenantKey, chunks); err != nil {
    s.fail(ctx, job.TenantKey, err)
    return err
  }

  if strings.TrimSpace(job.PromptOverride) != "" {
    if err := s.promptRepo.Set(ctx, job.TenantKey, job.PromptOverride); err != nil {
      s.fail(ctx, job.TenantKey, err)
      return err
    }
  }

  s.bus.Publish(ctx, job.TenantKey, "Integration complete!")
  s.log.Info("ingestion complete",
    "tenant", job.TenantKey,
    "platform", job.Platform,
    "records", len(records),
    "embedded_records", embedded,
    "chunks", len(chunks))
  return nil
}

func (s *ingestionService) fail(ctx context.Context, tenantKey string, err error) {
  s.bus.Publish(ctx, tenantKey, fmt.Sprintf("Error: %s", err.Error()))
}

// embedRecords chunks and embeds every record concurrently. A record whose
// embedding call fails is skipped, not fatal; the second return value is
// the number of records that made it through.
func (s *ingestionService) embedRecords(ctx context.Context, tenantKey string, records []types.SourceRecord) ([]*types.ProductChunk, int, error) {
  var (
    mu       sync.Mutex
    chunks   []*types.ProductChunk
    embedded int
  )

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(s.ingestion.EmbedWorkers)

  for _, record := range records {
    record := record
    g.Go(func() error {
      recordChunks, err := s.embedRecord(gctx, tenantKey, record)
      if err != nil {
        if gctx.Err() != nil {
          return gctx.Err()
        }
        s.log.Warn("skipping record after embedding failure",
          "tenant", tenantKey, "record", record.Name, "error", err)
        return nil
      }
      mu.Lock()
      chunks = append(chunks, recordChunks...)
      embedded++
      mu.Unlock()
      return nil
    })
  }

  if err := g.Wait(); err != nil {
    return nil, 0, err
  }
  return chunks, embedded, nil
}

func (s *ingestionService) embedRecord(ctx context.Context, tenantKey string, record types.SourceRecord) ([]*types.ProductChunk, error) {
  text := strings.TrimSpace(record.Description.Overview)
  if text == "" {
    text = record.Name
  }

  pieces := chunker.Split(text, s.chunking.MaxChunkSize)
  if len(pieces) == 0 {
    return nil, errs.Tenant(errs.KindInvalidSource, "embed record", tenantKey,
      fmt.Sprintf("record %q has no text", record.Name), nil)
  }

  vecs, err := s.openai.Embed(ctx, pieces)
  if err != nil {
    return nil, err
  }

  metadata, _ := json.Marshal(map[string]any{
    "record_id":   record.ID,
    "source_url":  record.URL,
    "chunk_count": len(pieces),
  })

  recordChunks := make([]*types.ProductChunk, 0, len(pieces))
  for i, piece := range pieces {
    recordChunks = append(recordChunks, &types.ProductChunk{
      TenantKey: tenantKey,
      Index:     i,
      Text:      piece,
      Embedding: pgvector.NewVector(vecs[i]),

      ProductID:    record.ID,
      ProductName:  record.Name,
      Price:        record.Price,
      Quantity:     record.Quantity,
      Sku:          record.Sku,
      Model:        record.Model,
      Image:        record.Image,
      Category:     record.Category,
      URL:          record.URL,
      Availability: record.Availability,
      SourceType:   record.SourceType,

      DescriptionTitle:          record.Description.Title,
      DescriptionOverview:       record.Description.Overview,
      DescriptionDetails:        record.Description.Details,
      DescriptionSpecifications: record.Description.Specifications,

      Metadata: datatypes.JSON(metadata),
    })
  }
  return recordChunks, nil
}
