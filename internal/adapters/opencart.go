package adapters

import (
	"context"
	"net/http"

	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

// openCartAdapter consumes the OpenCart product feed extension, which already
// exposes a mostly-normalized product list. A credential is optional and
// rides as an api_key query parameter.
type openCartAdapter struct {
	log    *logger.Logger
	client *http.Client
}

func NewOpenCartAdapter(log *logger.Logger, client *http.Client) Adapter {
	return &openCartAdapter{log: log.With("adapter", PlatformOpenCart), client: client}
}

type openCartProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Special      string `json:"special"`
	Quantity     string `json:"quantity"`
	Sku          string `json:"sku"`
	Model        string `json:"model"`
	Image        string `json:"image"`
	Category     string `json:"category"`
	URL          string `json:"url"`
	Availability string `json:"availability"`
	Description  struct {
		Title          string `json:"title"`
		Overview       string `json:"overview"`
		Details        any    `json:"details"`
		Specifications any    `json:"specifications"`
	} `json:"description"`
}

func (a *openCartAdapter) FetchRecords(ctx context.Context, src Source) ([]types.SourceRecord, error) {
	base, err := validateSourceURL(src.URL)
	if err != nil {
		return nil, err
	}
	fetchURL := *base
	if src.Credential != "" {
		q := fetchURL.Query()
		q.Set("api_key", src.Credential)
		fetchURL.RawQuery = q.Encode()
	}

	var products []openCartProduct
	if err := getJSON(ctx, a.client, "fetch opencart products", fetchURL.String(), nil, &products); err != nil {
		return nil, err
	}

	records := make([]types.SourceRecord, 0, len(products))
	for _, p := range products {
		records = append(records, types.SourceRecord{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Quantity:     p.Quantity,
			Sku:          p.Sku,
			Model:        p.Model,
			Image:        resolveURL(base, p.Image),
			Category:     p.Category,
			URL:          resolveURL(base, p.URL),
			Availability: p.Availability,
			SourceType:   types.SourceTypeProduct,
			Description: types.SourceDescription{
				Title:          p.Description.Title,
				Overview:       p.Description.Overview,
				Details:        formatDetails(p.Description.Details),
				Specifications: formatSpecifications(p.Description.Specifications),
			},
		})
	}
	a.log.Debug("Fetched opencart products", "count", len(records))
	return records, nil
}
