package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lulai-platform/lulai-backend/internal/errs"
	"github.com/lulai-platform/lulai-backend/internal/logger"
	"github.com/lulai-platform/lulai-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func TestRegistryLookupUnknownPlatform(t *testing.T) {
	r := DefaultRegistry(testLogger(t), testClient())
	if _, err := r.Lookup("bigcommerce"); !errs.Is(err, errs.KindInvalidSource) {
		t.Fatalf("unknown platform: want invalid_source got %v", err)
	}
	if _, err := r.Lookup("  Shopify "); err != nil {
		t.Fatalf("lookup should normalize case/space: %v", err)
	}
}

func TestAdaptersRejectNonHTTPSchemes(t *testing.T) {
	r := DefaultRegistry(testLogger(t), testClient())
	for _, platform := range []string{PlatformOpenCart, PlatformCustomStore, PlatformWebscrape} {
		a, err := r.Lookup(platform)
		if err != nil {
			t.Fatalf("lookup %s: %v", platform, err)
		}
		_, err = a.FetchRecords(context.Background(), Source{URL: "ftp://catalog.example/feed"})
		if !errs.Is(err, errs.KindInvalidSource) {
			t.Fatalf("%s scheme check: want invalid_source got %v", platform, err)
		}
	}
}

func TestShopifyRequiresCredentialBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	a := NewShopifyAdapter(testLogger(t), testClient())
	_, err := a.FetchRecords(context.Background(), Source{URL: srv.URL + "/admin/api/products.json"})
	if !errs.Is(err, errs.KindInvalidSource) {
		t.Fatalf("missing token: want invalid_source got %v", err)
	}
	if called {
		t.Fatalf("network call made despite missing credential")
	}
}

func TestShopifyMapsListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "shpat_test" {
			t.Fatalf("token header: want=shpat_test got=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{
			"id": 42,
			"title": "Trail Jacket",
			"body_html": "A waterproof shell for wet rides.",
			"vendor": "Northcliff",
			"product_type": "Outerwear",
			"handle": "trail-jacket",
			"tags": "jackets, waterproof",
			"variants": [{"price":"129.00","sku":"TJ-42","option1":"Large","inventory_quantity":7,"available":true}],
			"image": {"src":"//cdn.example.com/trail.jpg"}
		}]}`))
	}))
	defer srv.Close()

	a := NewShopifyAdapter(testLogger(t), testClient())
	records, err := a.FetchRecords(context.Background(), Source{URL: srv.URL + "/admin/api/products.json", Credential: "shpat_test"})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records: want=1 got=%d", len(records))
	}
	rec := records[0]
	if rec.ID != "42" || rec.Name != "Trail Jacket" || rec.Price != "129.00" {
		t.Fatalf("core fields wrong: %+v", rec)
	}
	if rec.Availability != types.AvailabilityInStock {
		t.Fatalf("availability: want=%q got=%q", types.AvailabilityInStock, rec.Availability)
	}
	if !strings.HasSuffix(rec.URL, "/products/trail-jacket") || !strings.HasPrefix(rec.URL, srv.URL) {
		t.Fatalf("product url not resolved against origin: %q", rec.URL)
	}
	if rec.Image != "https://cdn.example.com/trail.jpg" {
		t.Fatalf("protocol-relative image not fixed: %q", rec.Image)
	}
	if rec.Description.Details != "Vendor: Northcliff; Type: Outerwear" {
		t.Fatalf("details: got=%q", rec.Description.Details)
	}
	if rec.Description.Specifications != "Tags: jackets, waterproof" {
		t.Fatalf("specifications: got=%q", rec.Description.Specifications)
	}
	if rec.Quantity != "7" {
		t.Fatalf("quantity: want=7 got=%q", rec.Quantity)
	}
}

func TestOpenCartAppendsAPIKeyParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "oc-secret" {
			t.Fatalf("api_key param: want=oc-secret got=%q", got)
		}
		if got := r.URL.Query().Get("route"); got != "feed/products" {
			t.Fatalf("existing query dropped: route=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id":"7","name":"Desk Lamp","price":"19.99","quantity":"3","sku":"DL-7","model":"LumenOne",
			"image":"/image/lamp.jpg","category":"Lighting","url":"/product/7","availability":"In Stock",
			"description":{"title":"Desk Lamp","overview":"Warm light for late work.","details":["Metal body","USB powered"],"specifications":{"Wattage":"9W"}}
		}]`))
	}))
	defer srv.Close()

	a := NewOpenCartAdapter(testLogger(t), testClient())
	records, err := a.FetchRecords(context.Background(), Source{URL: srv.URL + "/?route=feed/products", Credential: "oc-secret"})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records: want=1 got=%d", len(records))
	}
	rec := records[0]
	if rec.Description.Details != "Metal body; USB powered" {
		t.Fatalf("details flattening: got=%q", rec.Description.Details)
	}
	if rec.Description.Specifications != "Wattage: 9W" {
		t.Fatalf("specifications flattening: got=%q", rec.Description.Specifications)
	}
	if !strings.HasPrefix(rec.URL, srv.URL) || !strings.HasPrefix(rec.Image, srv.URL) {
		t.Fatalf("relative urls not resolved: url=%q image=%q", rec.URL, rec.Image)
	}
}

func TestCustomStoreSynthesizesMissingDescription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"Canvas Tote","brand":"Harbor","category":"Bags","price":24.5,"images":["/img/tote.jpg"],"description_file":"/desc/1.json"},
			{"id":2,"name":"Field Notebook","brand":"Quill","category":"Stationery","price":9,"images":["/img/notebook.jpg"],"description_file":"/desc/2.json"}
		]`))
	})
	mux.HandleFunc("/desc/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Canvas Tote","overview":"A heavyweight tote for daily hauling.","details":["Cotton canvas","Riveted handles"],"specifications":{"Volume":"18L"}}`))
	})
	mux.HandleFunc("/desc/2.json", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewCustomStoreAdapter(testLogger(t), testClient())
	records, err := a.FetchRecords(context.Background(), Source{URL: srv.URL + "/catalog.json"})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("a missing description must not drop the record: want=2 got=%d", len(records))
	}

	if records[0].Description.Overview != "A heavyweight tote for daily hauling." {
		t.Fatalf("fetched overview: got=%q", records[0].Description.Overview)
	}
	fallback := records[1].Description
	if !strings.Contains(fallback.Overview, "Field Notebook") || !strings.Contains(fallback.Overview, "Quill") {
		t.Fatalf("synthesized overview must carry name and brand: got=%q", fallback.Overview)
	}
	if fallback.Details != "Category: Stationery; Brand: Quill" {
		t.Fatalf("synthesized details: got=%q", fallback.Details)
	}
	if records[1].Availability != types.AvailabilityInStock {
		t.Fatalf("availability default: got=%q", records[1].Availability)
	}
}

func TestWebscrapeGroupsSectionsByHeading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Mozilla") {
			t.Fatalf("browser user agent not sent: %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Harbor Goods</title>
			<meta property="og:type" content="article"/></head>
			<body><h1>Shipping</h1><p>Orders leave within two days.</p>
			<h2>Returns</h2><p>Thirty day window.</p><li>Keep the receipt.</li></body></html>`))
	}))
	defer srv.Close()

	a := NewWebscrapeAdapter(testLogger(t), testClient())
	records, err := a.FetchRecords(context.Background(), Source{URL: srv.URL})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("sections: want=2 got=%d (%+v)", len(records), records)
	}
	if records[0].Name != "Shipping" || records[1].Name != "Returns" {
		t.Fatalf("headings wrong: %q / %q", records[0].Name, records[1].Name)
	}
	if records[0].Category != "article" {
		t.Fatalf("page type: want=article got=%q", records[0].Category)
	}
	if !strings.Contains(records[1].Description.Overview, "Keep the receipt.") {
		t.Fatalf("list items not captured: %q", records[1].Description.Overview)
	}
	for _, rec := range records {
		if rec.SourceType != types.SourceTypeWebscrape {
			t.Fatalf("source type: got=%q", rec.SourceType)
		}
	}
}
