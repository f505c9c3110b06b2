package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lulai-platform/lulai-backend/internal/errs"
	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

// Source identifies one upstream catalog or page to ingest.
type Source struct {
	URL        string
	Credential string
}

// Adapter normalizes one platform's schema onto types.SourceRecord.
// Implementations do network I/O only; storage writes never happen here.
type Adapter interface {
	FetchRecords(ctx context.Context, src Source) ([]types.SourceRecord, error)
}

// Registry maps platform ids to adapters so adding a platform never touches
// call sites.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(platform string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(strings.TrimSpace(platform))] = a
}

func (r *Registry) Lookup(platform string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, errs.E(errs.KindInvalidSource, "lookup adapter", fmt.Sprintf("unsupported platform %q (known: %s)", platform, strings.Join(r.platforms(), ", ")), nil)
	}
	return a, nil
}

func (r *Registry) platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry wires every supported platform.
func DefaultRegistry(log *logger.Logger, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r := NewRegistry()
	r.Register(PlatformOpenCart, NewOpenCartAdapter(log, client))
	r.Register(PlatformShopify, NewShopifyAdapter(log, client))
	r.Register(PlatformCustomStore, NewCustomStoreAdapter(log, client))
	r.Register(PlatformWebscrape, NewWebscrapeAdapter(log, client))
	return r
}

const (
	PlatformOpenCart    = "opencart"
	PlatformShopify     = "shopify"
	PlatformCustomStore = "customstore"
	PlatformWebscrape   = "webscrape"
)

// validateSourceURL rejects anything that is not an absolute http(s) URL
// before any network call is attempted.
func validateSourceURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errs.E(errs.KindInvalidSource, "validate source url", fmt.Sprintf("unparseable url %q", raw), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.E(errs.KindInvalidSource, "validate source url", fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, errs.E(errs.KindInvalidSource, "validate source url", "missing host", nil)
	}
	return u, nil
}

// resolveURL makes relative upstream links absolute against the listing
// endpoint's origin. Empty input stays empty rather than becoming the origin.
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func classifyFetchErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.E(errs.KindProviderTimeout, op, "upstream deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.E(errs.KindProviderTimeout, op, "upstream timed out", err)
	}
	return errs.E(errs.KindInvalidSource, op, "upstream fetch failed", err)
}

// getJSON issues one GET and decodes the 2xx body into out.
func getJSON(ctx context.Context, client *http.Client, op string, u string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errs.E(errs.KindInvalidSource, op, "build request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return classifyFetchErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errs.E(errs.KindInvalidSource, op, fmt.Sprintf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.E(errs.KindInvalidSource, op, "decode upstream body", err)
	}
	return nil
}

// formatDetails flattens upstream description details (array or scalar) into
// one delimited string.
func formatDetails(details any) string {
	switch v := details.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case []string:
		return strings.Join(v, "; ")
	default:
		return fmt.Sprint(v)
	}
}

// formatSpecifications flattens a specifications object into "key: value"
// pairs. Keys are sorted so output is stable across runs.
func formatSpecifications(specs any) string {
	m, ok := specs.(map[string]any)
	if !ok {
		if s, ok := specs.(string); ok {
			return s
		}
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(parts, "; ")
}
