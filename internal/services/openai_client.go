package services

import (
  "bufio"
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/lulai-platform/lulai-backend/internal/errs"
  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/utils"
)

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
  Role    string `json:"role"`
  Content string `json:"content"`
}

type OpenAIClient interface {
  // Embed returns one vector per input, in input order.
  Embed(ctx context.Context, inputs []string) ([][]float32, error)
  // StreamChat streams a completion, invoking onDelta for each text
  // fragment as it arrives, and returns the assembled full reply.
  StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error)
}

type openAIClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  embedModel string
  httpClient *http.Client

  maxRetries int
}

func NewOpenAIClient(log *logger.Logger) (OpenAIClient, error) {
  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log)
  model := utils.GetEnv("OPENAI_MODEL", "gpt-4o", log)
  embed := utils.GetEnv("OPENAI_EMBED_MODEL", "text-embedding-ada-002", log)

  timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 120, log)
  if timeoutSec <= 0 {
    timeoutSec = 120
  }

  maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 4, log)
  if maxRetries < 0 {
    maxRetries = 4
  }

  return &openAIClient{
    log:        log.With("service", "OpenAIClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    embedModel: embed,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type openAIHTTPError struct {
  StatusCode int
  Body       string
}

func (e *openAIHTTPError) Error() string {
  return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    // Caller cancellation is filtered by the ctx check in the retry loop;
    // anything that reaches here is our own client timeout.
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *openAIHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *openAIClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *openAIClient) do(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }
    if attempt == c.maxRetries {
      return err
    }

    // Respect Retry-After when present
    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("OpenAI request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

func classifyProviderErr(kind errs.Kind, op string, err error) error {
  if errors.Is(err, context.DeadlineExceeded) {
    return errs.E(errs.KindProviderTimeout, op, "provider deadline exceeded", err)
  }
  var netErr net.Error
  if errors.As(err, &netErr) && netErr.Timeout() {
    return errs.E(errs.KindProviderTimeout, op, "provider timeout", err)
  }
  var httpErr *openAIHTTPError
  if errors.As(err, &httpErr) && (httpErr.StatusCode == 408 || httpErr.StatusCode == 504) {
    return errs.E(errs.KindProviderTimeout, op, "provider timeout", err)
  }
  return errs.E(kind, op, "", err)
}

// ---- Embeddings ----

type embeddingsRequest struct {
  Model string   `json:"model"`
  Input []string `json:"input"`
}

type embeddingsResponse struct {
  Data []struct {
    Embedding []float64 `json:"embedding"`
    Index     int       `json:"index"`
  } `json:"data"`
}

func (c *openAIClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
  if len(inputs) == 0 {
    return [][]float32{}, nil
  }
  for i, input := range inputs {
    if strings.TrimSpace(input) == "" {
      return nil, errs.E(errs.KindInvalidArgument, "embed",
        fmt.Sprintf("input %d is empty", i), nil)
    }
  }
  req := embeddingsRequest{
    Model: c.embedModel,
    Input: inputs,
  }
  var resp embeddingsResponse
  if err := c.do(ctx, "POST", "/v1/embeddings", req, &resp); err != nil {
    return nil, classifyProviderErr(errs.KindEmbedding, "embed", err)
  }
  out := make([][]float32, len(inputs))
  for _, d := range resp.Data {
    vec := make([]float32, len(d.Embedding))
    for i, f := range d.Embedding {
      vec[i] = float32(f)
    }
    if d.Index >= 0 && d.Index < len(out) {
      out[d.Index] = vec
    }
  }
  for i := range out {
    if out[i] == nil {
      return nil, errs.E(errs.KindEmbedding, "embed",
        fmt.Sprintf("missing embedding for index %d", i), nil)
    }
  }
  return out, nil
}

// ---- Chat completions (streaming) ----

type chatRequest struct {
  Model    string        `json:"model"`
  Messages []ChatMessage `json:"messages"`
  Stream   bool          `json:"stream"`
}

type chatStreamChunk struct {
  Choices []struct {
    Delta struct {
      Content string `json:"content"`
    } `json:"delta"`
    FinishReason *string `json:"finish_reason"`
  } `json:"choices"`
  Error *struct {
    Message string `json:"message"`
  } `json:"error"`
}

func (c *openAIClient) StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error) {
  if len(messages) == 0 {
    return "", errs.E(errs.KindInvalidArgument, "stream chat", "no messages", nil)
  }

  body := chatRequest{Model: c.model, Messages: messages, Stream: true}
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return "", errs.E(errs.KindCompletion, "stream chat", "encode request", err)
  }

  req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", &buf)
  if err != nil {
    return "", errs.E(errs.KindCompletion, "stream chat", "build request", err)
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")
  req.Header.Set("Accept", "text/event-stream")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return "", classifyProviderErr(errs.KindCompletion, "stream chat", err)
  }
  defer resp.Body.Close()

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    raw, _ := io.ReadAll(resp.Body)
    httpErr := &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
    return "", classifyProviderErr(errs.KindCompletion, "stream chat", httpErr)
  }

  var full strings.Builder
  err = streamSSE(resp.Body, func(_ string, data string) error {
    data = strings.TrimSpace(data)
    if data == "" || data == "[DONE]" {
      return nil
    }
    var chunk chatStreamChunk
    if err := json.Unmarshal([]byte(data), &chunk); err != nil {
      // Skip undecodable keepalive payloads.
      return nil
    }
    if chunk.Error != nil {
      return fmt.Errorf("openai stream error: %s", chunk.Error.Message)
    }
    if len(chunk.Choices) == 0 {
      return nil
    }
    delta := chunk.Choices[0].Delta.Content
    if delta == "" {
      return nil
    }
    full.WriteString(delta)
    if onDelta != nil {
      onDelta(delta)
    }
    return nil
  })
  if err != nil {
    if ctx.Err() != nil {
      return full.String(), ctx.Err()
    }
    return full.String(), classifyProviderErr(errs.KindCompletion, "stream chat", err)
  }
  return full.String(), nil
}

// streamSSE reads a text/event-stream body and calls onEvent once per event.
// Multi-line data fields are joined with newlines per the SSE spec.
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
  br := bufio.NewReader(r)
  var (
    eventName string
    dataLines []string
  )

  flush := func() error {
    if len(dataLines) == 0 {
      eventName = ""
      return nil
    }
    data := strings.Join(dataLines, "\n")
    dataLines = nil
    ev := eventName
    eventName = ""
    if onEvent == nil {
      return nil
    }
    return onEvent(ev, data)
  }

  for {
    line, err := br.ReadString('\n')
    if err != nil {
      if errors.Is(err, io.EOF) {
        _ = flush()
        break
      }
      return err
    }
    line = strings.TrimRight(line, "\r\n")

    if line == "" {
      if err := flush(); err != nil {
        return err
      }
      continue
    }
    if strings.HasPrefix(line, ":") {
      continue
    }
    if strings.HasPrefix(line, "event:") {
      eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
      continue
    }
    if strings.HasPrefix(line, "data:") {
      dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
      continue
    }
  }

  return nil
}
