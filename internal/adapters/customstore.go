package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

// customStoreAdapter handles self-hosted stores whose listing references a
// secondary per-product description resource. A missing description never
// fails the record: a fallback is synthesized from the listing fields alone.
type customStoreAdapter struct {
	log    *logger.Logger
	client *http.Client
}

func NewCustomStoreAdapter(log *logger.Logger, client *http.Client) Adapter {
	return &customStoreAdapter{log: log.With("adapter", PlatformCustomStore), client: client}
}

type customStoreProduct struct {
	ID              json.Number `json:"id"`
	Name            string      `json:"name"`
	Brand           string      `json:"brand"`
	Category        string      `json:"category"`
	Price           json.Number `json:"price"`
	Images          []string    `json:"images"`
	DescriptionFile string      `json:"description_file"`
}

type customStoreDescription struct {
	Title          string `json:"title"`
	Overview       string `json:"overview"`
	Details        any    `json:"details"`
	Specifications any    `json:"specifications"`
}

func (a *customStoreAdapter) FetchRecords(ctx context.Context, src Source) ([]types.SourceRecord, error) {
	base, err := validateSourceURL(src.URL)
	if err != nil {
		return nil, err
	}

	var products []customStoreProduct
	if err := getJSON(ctx, a.client, "fetch customstore products", src.URL, nil, &products); err != nil {
		return nil, err
	}

	origin := *base
	origin.Path = ""
	origin.RawQuery = ""

	records := make([]types.SourceRecord, 0, len(products))
	for _, p := range products {
		desc := types.SourceDescription{
			Title:          p.Name,
			Overview:       fmt.Sprintf("%s by %s", p.Name, p.Brand),
			Details:        formatDetails([]any{"Category: " + p.Category, "Brand: " + p.Brand}),
			Specifications: formatSpecifications(map[string]any{"Price": "$" + p.Price.String()}),
		}
		a.mergeDescription(ctx, &origin, p, &desc)

		image := ""
		if len(p.Images) > 0 {
			image = resolveURL(&origin, p.Images[0])
		}
		records = append(records, types.SourceRecord{
			ID:           p.ID.String(),
			Name:         p.Name,
			Price:        p.Price.String(),
			Quantity:     "Unknown",
			Model:        p.Brand,
			Image:        image,
			Category:     p.Category,
			URL:          resolveURL(&origin, "/product/"+p.ID.String()),
			Availability: types.AvailabilityInStock,
			SourceType:   types.SourceTypeProduct,
			Description:  desc,
		})
	}
	a.log.Debug("Fetched customstore products", "count", len(records))
	return records, nil
}

// mergeDescription overlays the per-product description resource onto the
// synthesized fallback. Any failure leaves the fallback in place.
func (a *customStoreAdapter) mergeDescription(ctx context.Context, origin *url.URL, p customStoreProduct, desc *types.SourceDescription) {
	if p.DescriptionFile == "" {
		return
	}
	descURL := resolveURL(origin, p.DescriptionFile)
	if descURL == "" {
		return
	}
	var d customStoreDescription
	if err := getJSON(ctx, a.client, "fetch customstore description", descURL, nil, &d); err != nil {
		a.log.Warn("Description fetch failed, using synthesized fallback", "product", p.Name, "url", descURL, "error", err)
		return
	}
	if d.Title != "" {
		desc.Title = d.Title
	}
	if d.Overview != "" {
		desc.Overview = d.Overview
	}
	if d.Details != nil {
		desc.Details = formatDetails(d.Details)
	}
	if d.Specifications != nil {
		desc.Specifications = formatSpecifications(d.Specifications)
	}
}
