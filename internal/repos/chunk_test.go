package repos

import (
  "context"
  "testing"
  "time"

  "github.com/DATA-DOG/go-sqlmock"
  "github.com/google/uuid"
  "github.com/jackc/pgx/v5/pgconn"
  "github.com/pgvector/pgvector-go"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger.New: %v", err)
  }
  return log
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
  t.Helper()
  sqlDB, mock, err := sqlmock.New()
  if err != nil {
    t.Fatalf("sqlmock.New: %v", err)
  }
  t.Cleanup(func() { sqlDB.Close() })
  db, err := gorm.Open(postgres.New(postgres.Config{
    Conn:                 sqlDB,
    PreferSimpleProtocol: true,
  }), &gorm.Config{SkipDefaultTransaction: true})
  if err != nil {
    t.Fatalf("gorm.Open: %v", err)
  }
  return db, mock
}

func testVec(fill float32) []float32 {
  vec := make([]float32, types.EmbeddingDim)
  for i := range vec {
    vec[i] = fill
  }
  return vec
}

func TestReplaceAllDeletesThenInserts(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  chunks := []*types.ProductChunk{
    {TenantKey: "acme", Index: 0, Text: "first", Embedding: pgvector.NewVector(testVec(0.1))},
    {TenantKey: "acme", Index: 1, Text: "second", Embedding: pgvector.NewVector(testVec(0.2))},
  }

  mock.ExpectBegin()
  mock.ExpectExec(`DELETE FROM "product_chunk" WHERE tenant_key = \$1`).
    WithArgs("acme").
    WillReturnResult(sqlmock.NewResult(0, 3))
  mock.ExpectQuery(`INSERT INTO "product_chunk"`).
    WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
      AddRow(uuid.NewString(), time.Now()).
      AddRow(uuid.NewString(), time.Now()))
  mock.ExpectCommit()

  if err := repo.ReplaceAll(context.Background(), "acme", chunks); err != nil {
    t.Fatalf("ReplaceAll: %v", err)
  }
  if err := mock.ExpectationsWereMet(); err != nil {
    t.Fatalf("unmet expectations: %v", err)
  }
}

func TestReplaceAllEmptySetOnlyDeletes(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectBegin()
  mock.ExpectExec(`DELETE FROM "product_chunk" WHERE tenant_key = \$1`).
    WithArgs("acme").
    WillReturnResult(sqlmock.NewResult(0, 5))
  mock.ExpectCommit()

  if err := repo.ReplaceAll(context.Background(), "acme", nil); err != nil {
    t.Fatalf("ReplaceAll: %v", err)
  }
  if err := mock.ExpectationsWereMet(); err != nil {
    t.Fatalf("unmet expectations: %v", err)
  }
}

func TestReplaceAllRollsBackOnInsertError(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  chunks := []*types.ProductChunk{
    {TenantKey: "acme", Index: 0, Text: "first", Embedding: pgvector.NewVector(testVec(0.1))},
  }

  mock.ExpectBegin()
  mock.ExpectExec(`DELETE FROM "product_chunk"`).
    WillReturnResult(sqlmock.NewResult(0, 0))
  mock.ExpectQuery(`INSERT INTO "product_chunk"`).
    WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax"})
  mock.ExpectRollback()

  err := repo.ReplaceAll(context.Background(), "acme", chunks)
  if err == nil {
    t.Fatal("expected error, got nil")
  }
  if got := errs.KindOf(err); got != errs.KindQuery {
    t.Fatalf("kind = %q, want %q", got, errs.KindQuery)
  }
  if err := mock.ExpectationsWereMet(); err != nil {
    t.Fatalf("unmet expectations: %v", err)
  }
}

func TestSimilaritySearchOrdersByDistance(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT \* FROM "product_chunk" WHERE tenant_key = \$1 ORDER BY embedding <-> \$2 LIMIT \$3`).
    WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_key", "index", "text", "source_type"}).
      AddRow(uuid.NewString(), "acme", 0, "nearest", types.SourceTypeProduct).
      AddRow(uuid.NewString(), "acme", 1, "second nearest", types.SourceTypeProduct))

  results, err := repo.SimilaritySearch(context.Background(), "acme", testVec(0.5), 20)
  if err != nil {
    t.Fatalf("SimilaritySearch: %v", err)
  }
  if len(results) != 2 {
    t.Fatalf("len(results) = %d, want 2", len(results))
  }
  if results[0].Text != "nearest" {
    t.Fatalf("results[0].Text = %q, want %q", results[0].Text, "nearest")
  }
  if err := mock.ExpectationsWereMet(); err != nil {
    t.Fatalf("unmet expectations: %v", err)
  }
}

func TestSimilaritySearchMissingTableIsEmpty(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT \* FROM "product_chunk"`).
    WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "product_chunk" does not exist`})

  results, err := repo.SimilaritySearch(context.Background(), "acme", testVec(0.5), 20)
  if err != nil {
    t.Fatalf("SimilaritySearch: %v", err)
  }
  if len(results) != 0 {
    t.Fatalf("len(results) = %d, want 0", len(results))
  }
}

func TestSimilaritySearchZeroK(t *testing.T) {
  db, _ := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  results, err := repo.SimilaritySearch(context.Background(), "acme", testVec(0.5), 0)
  if err != nil {
    t.Fatalf("SimilaritySearch: %v", err)
  }
  if len(results) != 0 {
    t.Fatalf("len(results) = %d, want 0", len(results))
  }
}

func TestSimilaritySearchClassifiesSchemaErrors(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT \* FROM "product_chunk"`).
    WillReturnError(&pgconn.PgError{Code: "42703", Message: `column "embedding" does not exist`})

  _, err := repo.SimilaritySearch(context.Background(), "acme", testVec(0.5), 20)
  if err == nil {
    t.Fatal("expected error, got nil")
  }
  if got := errs.KindOf(err); got != errs.KindSchema {
    t.Fatalf("kind = %q, want %q", got, errs.KindSchema)
  }
}

func TestFallbackSampleLimits(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT \* FROM "product_chunk" WHERE tenant_key = \$1 LIMIT \$2`).
    WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_key", "text"}).
      AddRow(uuid.NewString(), "acme", "anything"))

  results, err := repo.FallbackSample(context.Background(), "acme", 10)
  if err != nil {
    t.Fatalf("FallbackSample: %v", err)
  }
  if len(results) != 1 {
    t.Fatalf("len(results) = %d, want 1", len(results))
  }
  if err := mock.ExpectationsWereMet(); err != nil {
    t.Fatalf("unmet expectations: %v", err)
  }
}

func TestSourceTypeReadsFirstRow(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT "source_type" FROM "product_chunk" WHERE tenant_key = \$1 LIMIT \$2`).
    WillReturnRows(sqlmock.NewRows([]string{"source_type"}).AddRow(types.SourceTypeWebscrape))

  sourceType, err := repo.SourceType(context.Background(), "acme")
  if err != nil {
    t.Fatalf("SourceType: %v", err)
  }
  if sourceType != types.SourceTypeWebscrape {
    t.Fatalf("sourceType = %q, want %q", sourceType, types.SourceTypeWebscrape)
  }
}

func TestSourceTypeEmptyTenant(t *testing.T) {
  db, mock := newMockDB(t)
  repo := NewChunkRepo(db, newTestLogger(t))

  mock.ExpectQuery(`SELECT "source_type" FROM "product_chunk"`).
    WillReturnRows(sqlmock.NewRows([]string{"source_type"}))

  sourceType, err := repo.SourceType(context.Background(), "ghost")
  if err != nil {
    t.Fatalf("SourceType: %v", err)
  }
  if sourceType != "" {
    t.Fatalf("sourceType = %q, want empty", sourceType)
  }
}
