package types

import (
  "time"
  "github.com/google/uuid"
  "github.com/pgvector/pgvector-go"
  "gorm.io/datatypes"
)

// ProductChunk is one embeddable unit of tenant catalog context. Source
// fields are denormalized onto the row so retrieval never needs a join.
// Tenant scoping is the tenant_key column; rows for a tenant are fully
// replaced on every ingestion run.
type ProductChunk struct {
  ID            uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  TenantKey     string            `gorm:"column:tenant_key;not null;index:idx_product_chunk_tenant" json:"tenant_key"`
  Index         int               `gorm:"column:index;not null" json:"index"`
  Text          string            `gorm:"column:text;not null" json:"text"`
  Embedding     pgvector.Vector   `gorm:"type:vector(1536)" json:"-"`

  ProductID     string            `gorm:"column:product_id" json:"product_id"`
  ProductName   string            `gorm:"column:product_name" json:"product_name"`
  Price         string            `gorm:"column:price" json:"price"`
  Quantity      string            `gorm:"column:quantity" json:"quantity"`
  Sku           string            `gorm:"column:sku" json:"sku"`
  Model         string            `gorm:"column:model" json:"model"`
  Image         string            `gorm:"column:image" json:"image"`
  Category      string            `gorm:"column:category" json:"category"`
  URL           string            `gorm:"column:url" json:"url"`
  Availability  string            `gorm:"column:availability" json:"availability"`
  SourceType    string            `gorm:"column:source_type;index" json:"source_type"`

  DescriptionTitle          string  `gorm:"column:description_title" json:"description_title"`
  DescriptionOverview       string  `gorm:"column:description_overview" json:"description_overview"`
  DescriptionDetails        string  `gorm:"column:description_details" json:"description_details"`
  DescriptionSpecifications string  `gorm:"column:description_specifications" json:"description_specifications"`

  Metadata      datatypes.JSON    `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
  CreatedAt     time.Time         `gorm:"not null;default:now()" json:"created_at"`
}

func (ProductChunk) TableName() string {
  return "product_chunk"
}

// EmbeddingDim is fixed by the embedding provider.
const EmbeddingDim = 1536
