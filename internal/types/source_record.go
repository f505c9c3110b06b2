package types

// SourceDescription is the normalized description composite every adapter
// produces. Overview is the primary embedding input.
type SourceDescription struct {
  Title           string
  Overview        string
  Details         string
  Specifications  string
}

// SourceRecord is the canonical post-normalization unit, built fresh on every
// ingestion run. Missing upstream fields normalize to empty strings so
// downstream formatting never sees a null.
type SourceRecord struct {
  ID              string
  Name            string
  Price           string
  Quantity        string
  Sku             string
  Model           string
  Image           string
  Category        string
  URL             string
  Availability    string
  SourceType      string
  Description     SourceDescription
}

const (
  SourceTypeProduct   = "product"
  SourceTypeWebscrape = "webscrape"

  AvailabilityInStock     = "In Stock"
  AvailabilityOutOfStock  = "Out of Stock"
)
