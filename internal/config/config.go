package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig controls how fetched records are split before embedding.
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// RetrievalConfig controls how many chunks are pulled into the prompt.
// Product catalogs get a deeper cut than scraped pages because product
// chunks are short and structured.
type RetrievalConfig struct {
	ProductTopK   int `yaml:"product_top_k"`
	WebscrapeTopK int `yaml:"webscrape_top_k"`
}

// IngestionConfig controls the embedding stage of an ingestion run.
type IngestionConfig struct {
	EmbedWorkers int `yaml:"embed_workers"`
}

// LoggingConfig controls the conversation log worker.
type LoggingConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// Config is the tuning surface of the service. Connection settings
// (Postgres, Redis, OpenAI) stay in the environment; this file only holds
// knobs that change behavior, not credentials.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads the config at path. A missing file returns defaults; a present
// but malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Chunking.MaxChunkSize <= 0 {
		cfg.Chunking.MaxChunkSize = 512
	}
	if cfg.Retrieval.ProductTopK <= 0 {
		cfg.Retrieval.ProductTopK = 20
	}
	if cfg.Retrieval.WebscrapeTopK <= 0 {
		cfg.Retrieval.WebscrapeTopK = 10
	}
	if cfg.Ingestion.EmbedWorkers <= 0 {
		cfg.Ingestion.EmbedWorkers = 4
	}
	if cfg.Logging.BufferSize <= 0 {
		cfg.Logging.BufferSize = 256
	}
}
