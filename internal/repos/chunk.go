package repos

import (
  "context"
  "errors"
  "github.com/jackc/pgx/v5/pgconn"
  "github.com/pgvector/pgvector-go"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

type ChunkRepo interface {
  // ReplaceAll atomically discards the tenant's prior chunks and inserts the
  // new set. Concurrent readers see the old set or the new set, never a mix.
  ReplaceAll(ctx context.Context, tenantKey string, chunks []*types.ProductChunk) error
  // SimilaritySearch returns up to k chunks nearest the query vector,
  // ascending by distance, scoped to the tenant. No data is not an error.
  SimilaritySearch(ctx context.Context, tenantKey string, queryVec []float32, k int) ([]*types.ProductChunk, error)
  // FallbackSample returns up to k arbitrary chunks with no ranking
  // guarantee. Only used when similarity search yields zero rows.
  FallbackSample(ctx context.Context, tenantKey string, k int) ([]*types.ProductChunk, error)
  // SourceType reports the tenant's dominant ingestion source type, or ""
  // when the tenant has no chunks.
  SourceType(ctx context.Context, tenantKey string) (string, error)
}

type chunkRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
  return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

// Text column is large; keep insert batches small.
const chunkInsertBatchSize = 100

func (r *chunkRepo) ReplaceAll(ctx context.Context, tenantKey string, chunks []*types.ProductChunk) error {
  err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if err := tx.Where("tenant_key = ?", tenantKey).Delete(&types.ProductChunk{}).Error; err != nil {
      return err
    }
    if len(chunks) == 0 {
      return nil
    }
    return tx.CreateInBatches(chunks, chunkInsertBatchSize).Error
  })
  if err != nil {
    return classifyStoreErr("replace chunks", tenantKey, err)
  }
  return nil
}

func (r *chunkRepo) SimilaritySearch(ctx context.Context, tenantKey string, queryVec []float32, k int) ([]*types.ProductChunk, error) {
  if k <= 0 {
    return []*types.ProductChunk{}, nil
  }
  var results []*types.ProductChunk
  err := r.db.WithContext(ctx).
    Where("tenant_key = ?", tenantKey).
    Clauses(clause.OrderBy{
      Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{pgvector.NewVector(queryVec)}},
    }).
    Limit(k).
    Find(&results).Error
  if err != nil {
    if isMissingRelation(err) {
      // Tenant has no schema yet; treated as empty, not fatal.
      return []*types.ProductChunk{}, nil
    }
    return nil, classifyStoreErr("similarity search", tenantKey, err)
  }
  if results == nil {
    results = []*types.ProductChunk{}
  }
  return results, nil
}

func (r *chunkRepo) FallbackSample(ctx context.Context, tenantKey string, k int) ([]*types.ProductChunk, error) {
  if k <= 0 {
    return []*types.ProductChunk{}, nil
  }
  var results []*types.ProductChunk
  err := r.db.WithContext(ctx).
    Where("tenant_key = ?", tenantKey).
    Limit(k).
    Find(&results).Error
  if err != nil {
    if isMissingRelation(err) {
      return []*types.ProductChunk{}, nil
    }
    return nil, classifyStoreErr("fallback sample", tenantKey, err)
  }
  if results == nil {
    results = []*types.ProductChunk{}
  }
  return results, nil
}

func (r *chunkRepo) SourceType(ctx context.Context, tenantKey string) (string, error) {
  var sourceTypes []string
  err := r.db.WithContext(ctx).
    Model(&types.ProductChunk{}).
    Where("tenant_key = ?", tenantKey).
    Limit(1).
    Pluck("source_type", &sourceTypes).Error
  if err != nil {
    if isMissingRelation(err) {
      return "", nil
    }
    return "", classifyStoreErr("read source type", tenantKey, err)
  }
  if len(sourceTypes) == 0 {
    return "", nil
  }
  return sourceTypes[0], nil
}

// isMissingRelation matches undefined_table, which only happens before the
// first migration has run.
func isMissingRelation(err error) bool {
  var pgErr *pgconn.PgError
  return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// classifyStoreErr separates DDL faults (operator problem) from DML/search
// faults (request problem) using the Postgres error class.
func classifyStoreErr(op string, tenantKey string, err error) error {
  var pgErr *pgconn.PgError
  if errors.As(err, &pgErr) {
    switch {
    case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "42":
      return errs.Tenant(errs.KindSchema, op, tenantKey, pgErr.Message, err)
    }
  }
  return errs.Tenant(errs.KindQuery, op, tenantKey, "", err)
}
