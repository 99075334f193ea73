// Package config loads the TOML configuration file. Every field has a
// working default so a missing file is not an error; the zero-config
// path runs entirely on local fallbacks.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultDirName is the per-user state directory under $HOME.
const DefaultDirName = ".passage"

// Embedding configures the embedding backend.
type Embedding struct {
	// BaseURL is the Ollama endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Dimensions is the embedding vector size.
	Dimensions int `toml:"dimensions"`

	// RateLimit caps embedding requests per second.
	RateLimit float64 `toml:"rate_limit"`
}

// Captioner configures the image captioning backend.
type Captioner struct {
	// BaseURL is the Ollama endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the vision model name.
	Model string `toml:"model"`
}

// Qdrant configures the vector store.
type Qdrant struct {
	// Enabled selects Qdrant; when false an in-memory store is used.
	Enabled bool `toml:"enabled"`

	// BaseURL is the Qdrant REST endpoint.
	BaseURL string `toml:"base_url"`

	// Collection is the collection name.
	Collection string `toml:"collection"`

	// APIKey authenticates requests when set.
	APIKey string `toml:"api_key"`
}

// Reranker configures the cross-encoder reranking service.
type Reranker struct {
	// Enabled puts the model reranker at the head of the fallback chain.
	Enabled bool `toml:"enabled"`

	// BaseURL is the reranking service endpoint.
	BaseURL string `toml:"base_url"`
}

// Chunker configures text chunking.
type Chunker struct {
	// MaxTokens is the per-paragraph token budget.
	MaxTokens int `toml:"max_tokens"`

	// OverlapTokens is the cross-paragraph overlap.
	OverlapTokens int `toml:"overlap_tokens"`
}

// Ingest configures ingestion.
type Ingest struct {
	// Workers is the directory ingestion pool size.
	Workers int `toml:"workers"`
}

// Retrieval configures retrieval.
type Retrieval struct {
	// MaxRewrites bounds query expansion.
	MaxRewrites int `toml:"max_rewrites"`

	// FuseImages enables late fusion of image similarity.
	FuseImages bool `toml:"fuse_images"`
}

// Config is the full application configuration.
type Config struct {
	// DataDir holds the sidecar database and extracted images
	// (default: ~/.passage).
	DataDir string `toml:"data_dir"`

	Embedding Embedding `toml:"embedding"`
	Captioner Captioner `toml:"captioner"`
	Qdrant    Qdrant    `toml:"qdrant"`
	Reranker  Reranker  `toml:"reranker"`
	Chunker   Chunker   `toml:"chunker"`
	Ingest    Ingest    `toml:"ingest"`
	Retrieval Retrieval `toml:"retrieval"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir: filepath.Join(home, DefaultDirName),
		Embedding: Embedding{
			BaseURL:    "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			RateLimit:  10,
		},
		Captioner: Captioner{
			BaseURL: "http://localhost:11434",
			Model:   "llava",
		},
		Qdrant: Qdrant{
			BaseURL:    "http://localhost:6333",
			Collection: "passages",
		},
		Reranker: Reranker{
			BaseURL: "http://localhost:8080",
		},
		Chunker: Chunker{
			MaxTokens:     400,
			OverlapTokens: 40,
		},
		Ingest: Ingest{
			Workers: 4,
		},
		Retrieval: Retrieval{
			MaxRewrites: 3,
		},
	}
}

// Load reads the TOML file at path, applying its values over the
// defaults. A missing file yields the defaults; a malformed one is an
// error. An empty path loads DataDir's config.toml.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// DatabasePath is the sidecar SQLite location under DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "paragraphs.db")
}

// ImageDir is where extracted images are persisted under DataDir.
func (c Config) ImageDir() string {
	return filepath.Join(c.DataDir, "images")
}
