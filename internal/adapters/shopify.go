package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lulai-platform/lulai-backend/internal/errs"
	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

// shopifyAdapter consumes the Shopify Admin products endpoint. An access
// token is mandatory and is sent as the X-Shopify-Access-Token header.
type shopifyAdapter struct {
	log    *logger.Logger
	client *http.Client
}

func NewShopifyAdapter(log *logger.Logger, client *http.Client) Adapter {
	return &shopifyAdapter{log: log.With("adapter", PlatformShopify), client: client}
}

type shopifyVariant struct {
	Price             string `json:"price"`
	Sku               string `json:"sku"`
	Option1           string `json:"option1"`
	InventoryQuantity *int   `json:"inventory_quantity"`
	Available         bool   `json:"available"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Handle      string           `json:"handle"`
	Tags        any              `json:"tags"`
	Variants    []shopifyVariant `json:"variants"`
	Image       *struct {
		Src string `json:"src"`
	} `json:"image"`
}

type shopifyListing struct {
	Products []shopifyProduct `json:"products"`
}

func (a *shopifyAdapter) FetchRecords(ctx context.Context, src Source) ([]types.SourceRecord, error) {
	if strings.TrimSpace(src.Credential) == "" {
		return nil, errs.E(errs.KindInvalidSource, "fetch shopify products", "shopify requires an access token", nil)
	}
	base, err := validateSourceURL(src.URL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Shopify-Access-Token", src.Credential)

	var listing shopifyListing
	if err := getJSON(ctx, a.client, "fetch shopify products", src.URL, header, &listing); err != nil {
		return nil, err
	}

	origin := *base
	origin.Path = ""
	origin.RawQuery = ""

	records := make([]types.SourceRecord, 0, len(listing.Products))
	for _, p := range listing.Products {
		var v shopifyVariant
		if len(p.Variants) > 0 {
			v = p.Variants[0]
		}
		price := v.Price
		if price == "" {
			price = "0"
		}
		quantity := "Unknown"
		if v.InventoryQuantity != nil {
			quantity = fmt.Sprintf("%d", *v.InventoryQuantity)
		}
		availability := types.AvailabilityOutOfStock
		if v.Available {
			availability = types.AvailabilityInStock
		}
		records = append(records, types.SourceRecord{
			ID:           fmt.Sprintf("%d", p.ID),
			Name:         p.Title,
			Price:        price,
			Quantity:     quantity,
			Sku:          v.Sku,
			Model:        v.Option1,
			Image:        shopifyImageURL(p),
			Category:     orUnknown(p.ProductType),
			URL:          resolveURL(&origin, "/products/"+p.Handle),
			Availability: availability,
			SourceType:   types.SourceTypeProduct,
			Description: types.SourceDescription{
				Title:          p.Title,
				Overview:       p.BodyHTML,
				Details:        formatDetails([]any{"Vendor: " + p.Vendor, "Type: " + p.ProductType}),
				Specifications: formatSpecifications(map[string]any{"Tags": shopifyTags(p.Tags)}),
			},
		})
	}
	a.log.Debug("Fetched shopify products", "count", len(records))
	return records, nil
}

// Shopify image srcs occasionally arrive protocol-relative ("//cdn...").
func shopifyImageURL(p shopifyProduct) string {
	if p.Image == nil {
		return ""
	}
	src := strings.TrimSpace(p.Image.Src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// shopifyTags accepts both wire shapes the API uses: a comma string or a list.
func shopifyTags(tags any) string {
	switch v := tags.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, t := range v {
			parts = append(parts, strings.TrimSpace(fmt.Sprint(t)))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
