package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/lulai-platform/lulai-backend/internal/config"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/repos"
  "github.com/lulai-platform/lulai-backend/internal/types"
)

// RetrievalService turns an end-user question into the system prompt for
// the completion call: policy text, retrieved product context, and the
// question itself.
type RetrievalService interface {
  // BuildContext returns the chunks backing the answer alongside the
  // assembled system prompt. The chunk slice is empty when the tenant has
  // no catalog or retrieval degraded; the prompt still carries a usable
  // context block either way.
  BuildContext(ctx context.Context, tenantKey string, question string) ([]*types.ProductChunk, string, error)
}

type retrievalService struct {
  log        *logger.Logger
  openai     OpenAIClient
  chunkRepo  repos.ChunkRepo
  promptRepo repos.PromptRepo
  cfg        config.RetrievalConfig
}

func NewRetrievalService(openai OpenAIClient, chunkRepo repos.ChunkRepo, promptRepo repos.PromptRepo, cfg config.RetrievalConfig, baseLog *logger.Logger) RetrievalService {
  return &retrievalService{
    log:        baseLog.With("service", "RetrievalService"),
    openai:     openai,
    chunkRepo:  chunkRepo,
    promptRepo: promptRepo,
    cfg:        cfg,
  }
}

const defaultSystemPrompt = `You are a customer service chatbot designed to assist customers with questions related to this integration.
Follow these guidelines:

1. Focus on Product Information:
   - Answer questions related to products, services, prices, availability, and categories using the provided context.
   - If product details are unavailable, be transparent while offering helpful suggestions.

2. Professional Tone:
   - Maintain a professional, friendly, and helpful tone at all times.
   - Avoid controversial or non-professional language.

3. Privacy Protection:
   - Immediately alert users if they share sensitive information.
   - Example response: "For your safety, please avoid sharing personal details through this channel."

4. Context Boundaries:
   - Politely decline to answer non-relevant questions with:
     "I'm specialized in product-related inquiries. How can I assist you with our offerings?"

5. Uncertainty Handling:
   - If lacking information, respond with:
     "I don't have specific details on that, but our products focus on quality and reliability. Check the product page for more information."

6. Clear Communication:
   - Provide concise responses with clear product details
   - Offer relevant links when available`

const emptyContext = "No relevant products found."

func (s *retrievalService) BuildContext(ctx context.Context, tenantKey string, question string) ([]*types.ProductChunk, string, error) {
  vecs, err := s.openai.Embed(ctx, []string{question})
  if err != nil {
    return nil, "", err
  }

  chunks, docContext := s.retrieveContext(ctx, tenantKey, vecs[0])

  policyText := defaultSystemPrompt
  policy, err := s.promptRepo.Get(ctx, tenantKey)
  if err != nil {
    // A broken prompt store should not take chat down; fall back to the
    // default policy.
    s.log.Warn("failed to load prompt policy", "tenant", tenantKey, "error", err)
  } else if policy != nil {
    policyText = policy.Content
  }

  return chunks, fmt.Sprintf(`%s

--------------
PRODUCT CONTEXT:
%s
END CONTEXT
--------------
USER QUESTION: %s
--------------`, policyText, docContext, question), nil
}

func (s *retrievalService) topK(sourceType string) int {
  if sourceType == types.SourceTypeWebscrape {
    return s.cfg.WebscrapeTopK
  }
  return s.cfg.ProductTopK
}

func (s *retrievalService) retrieveContext(ctx context.Context, tenantKey string, queryVec []float32) ([]*types.ProductChunk, string) {
  sourceType, err := s.chunkRepo.SourceType(ctx, tenantKey)
  if err != nil {
    s.log.Warn("failed to read source type", "tenant", tenantKey, "error", err)
    return nil, "Error retrieving product data."
  }

  k := s.topK(sourceType)
  chunks, err := s.chunkRepo.SimilaritySearch(ctx, tenantKey, queryVec, k)
  if err != nil {
    s.log.Warn("similarity search failed", "tenant", tenantKey, "error", err)
    return nil, "Error retrieving product data."
  }

  if len(chunks) == 0 {
    chunks, err = s.chunkRepo.FallbackSample(ctx, tenantKey, k)
    if err != nil {
      s.log.Warn("fallback sample failed", "tenant", tenantKey, "error", err)
      return nil, "Error retrieving product data."
    }
  }

  if len(chunks) == 0 {
    return nil, emptyContext
  }
  return chunks, formatChunks(chunks)
}

func orNotAvailable(v string, fallback string) string {
  if strings.TrimSpace(v) == "" {
    return fallback
  }
  return v
}

func formatChunks(chunks []*types.ProductChunk) string {
  parts := make([]string, 0, len(chunks))
  for _, c := range chunks {
    url := c.URL
    if strings.TrimSpace(url) == "" {
      url = "#"
    }
    parts = append(parts, fmt.Sprintf(
      "**Product Name**: %s\n"+
        "**Price**: %s\n"+
        "**Model**: %s\n"+
        "**Category**: %s\n"+
        "**Availability**: %s\n"+
        "**Description**: %s\n"+
        "**Details**: %s\n"+
        "**Specifications**: %s\n"+
        "**URL**: [Link to Product](%s)\n-----------------------------------\n",
      c.ProductName,
      orNotAvailable(c.Price, "Not available"),
      orNotAvailable(c.Model, "Not available"),
      orNotAvailable(c.Category, "Not available"),
      orNotAvailable(c.Availability, "Not available"),
      orNotAvailable(c.Text, "No description available"),
      orNotAvailable(c.DescriptionDetails, "No details available"),
      orNotAvailable(c.DescriptionSpecifications, "No specifications available"),
      url,
    ))
  }
  return strings.Join(parts, "\n")
}
