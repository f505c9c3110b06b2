package services

import (
  "context"
  "sync"
  "testing"

  "github.com/lulai-platform/lulai-backend/internal/adapters"
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

type fakeOpenAI struct {
  embedFn  func(ctx context.Context, inputs []string) ([][]float32, error)
  streamFn func(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error)
}

func (f *fakeOpenAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
  return f.embedFn(ctx, inputs)
}

func (f *fakeOpenAI) StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error) {
  return f.streamFn(ctx, messages, onDelta)
}

func fixedVectors(n int) [][]float32 {
  vecs := make([][]float32, n)
  for i := range vecs {
    vec := make([]float32, types.EmbeddingDim)
    vec[0] = float32(i + 1)
    vecs[i] = vec
  }
  return vecs
}

type fakeChunkRepo struct {
  mu sync.Mutex

  replaced   map[string][]*types.ProductChunk
  replaceErr error

  searchResults []*types.ProductChunk
  searchErr     error
  searchedK     int

  fallbackResults []*types.ProductChunk
  fallbackCalled  bool

  sourceType string
}

func (f *fakeChunkRepo) ReplaceAll(ctx context.Context, tenantKey string, chunks []*types.ProductChunk) error {
  f.mu.Lock()
  defer f.mu.Unlock()
  if f.replaceErr != nil {
    return f.replaceErr
  }
  if f.replaced == nil {
    f.replaced = make(map[string][]*types.ProductChunk)
  }
  f.replaced[tenantKey] = chunks
  return nil
}

func (f *fakeChunkRepo) SimilaritySearch(ctx context.Context, tenantKey string, queryVec []float32, k int) ([]*types.ProductChunk, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.searchedK = k
  if f.searchErr != nil {
    return nil, f.searchErr
  }
  return f.searchResults, nil
}

func (f *fakeChunkRepo) FallbackSample(ctx context.Context, tenantKey string, k int) ([]*types.ProductChunk, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.fallbackCalled = true
  return f.fallbackResults, nil
}

func (f *fakeChunkRepo) SourceType(ctx context.Context, tenantKey string) (string, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  return f.sourceType, nil
}

type fakePromptRepo struct {
  mu      sync.Mutex
  content map[string]string
  getErr  error
  setErr  error
}

func (f *fakePromptRepo) Get(ctx context.Context, tenantKey string) (*types.PromptPolicy, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  if f.getErr != nil {
    return nil, f.getErr
  }
  content, ok := f.content[tenantKey]
  if !ok {
    return nil, nil
  }
  return &types.PromptPolicy{TenantKey: tenantKey, Content: content}, nil
}

func (f *fakePromptRepo) Set(ctx context.Context, tenantKey string, content string) error {
  f.mu.Lock()
  defer f.mu.Unlock()
  if f.setErr != nil {
    return f.setErr
  }
  if f.content == nil {
    f.content = make(map[string]string)
  }
  f.content[tenantKey] = content
  return nil
}

type fakeConversationRepo struct {
  mu      sync.Mutex
  turns   []*types.ConversationTurn
  appends chan struct{}
}

func (f *fakeConversationRepo) Append(ctx context.Context, turn *types.ConversationTurn) error {
  f.mu.Lock()
  f.turns = append(f.turns, turn)
  f.mu.Unlock()
  if f.appends != nil {
    f.appends <- struct{}{}
  }
  return nil
}

func (f *fakeConversationRepo) ListTurns(ctx context.Context, tenantKey string, endUserID string, limit int) ([]*types.ConversationTurn, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  return f.turns, nil
}

func (f *fakeConversationRepo) recorded() []*types.ConversationTurn {
  f.mu.Lock()
  defer f.mu.Unlock()
  out := make([]*types.ConversationTurn, len(f.turns))
  copy(out, f.turns)
  return out
}

type fakeProgressBus struct {
  mu       sync.Mutex
  statuses []string
}

func (f *fakeProgressBus) Publish(ctx context.Context, tenantKey string, status string) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.statuses = append(f.statuses, status)
}

func (f *fakeProgressBus) History(ctx context.Context, tenantKey string) []string {
  return f.recorded()
}

func (f *fakeProgressBus) StartForwarder(ctx context.Context) error { return nil }
func (f *fakeProgressBus) Close() error                            { return nil }

func (f *fakeProgressBus) recorded() []string {
  f.mu.Lock()
  defer f.mu.Unlock()
  out := make([]string, len(f.statuses))
  copy(out, f.statuses)
  return out
}

type fakeAdapter struct {
  records []types.SourceRecord
  err     error
  block   chan struct{}
}

func (f *fakeAdapter) FetchRecords(ctx context.Context, src adapters.Source) ([]types.SourceRecord, error) {
  if f.block != nil {
    select {
    case <-f.block:
    case <-ctx.Done():
      return nil, ctx.Err()
    }
  }
  if f.err != nil {
    return nil, f.err
  }
  return f.records, nil
}
