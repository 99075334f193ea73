package cli

import (
	"fmt"
	"os"

	captollama "github.com/passage-dev/passage/internal/adapters/driven/captioner/ollama"
	"github.com/passage-dev/passage/internal/adapters/driven/crossencoder/httpapi"
	"github.com/passage-dev/passage/internal/adapters/driven/embedding/failover"
	"github.com/passage-dev/passage/internal/adapters/driven/embedding/hash"
	embollama "github.com/passage-dev/passage/internal/adapters/driven/embedding/ollama"
	"github.com/passage-dev/passage/internal/adapters/driven/storage/sqlite"
	vecmem "github.com/passage-dev/passage/internal/adapters/driven/vectorstore/memory"
	"github.com/passage-dev/passage/internal/adapters/driven/vectorstore/qdrant"
	"github.com/passage-dev/passage/internal/chunker"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/core/services"
	"github.com/passage-dev/passage/internal/mapper"
	"github.com/passage-dev/passage/internal/reranker"
	"github.com/passage-dev/passage/internal/rewriter"
	"github.com/passage-dev/passage/internal/structurer"
)

// buildEmbedder constructs the never-fail embedding chain: Ollama with a
// deterministic hash fallback of matching dimensionality.
func buildEmbedder() driven.EmbeddingService {
	primary := embollama.NewEmbeddingService(embollama.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		RateLimit:  cfg.Embedding.RateLimit,
	})
	return failover.NewEmbeddingService(primary, hash.NewEmbeddingService(primary.Dimensions()))
}

func buildVectors() driven.VectorStore {
	if cfg.Qdrant.Enabled {
		return qdrant.NewStore(qdrant.Config{
			BaseURL:    cfg.Qdrant.BaseURL,
			Collection: cfg.Qdrant.Collection,
			APIKey:     cfg.Qdrant.APIKey,
		})
	}
	return vecmem.NewStore()
}

// buildReranker constructs the reranking fallback chain. The heuristic
// tail guarantees reranking never fails.
func buildReranker() driven.Reranker {
	heuristic := reranker.NewHeuristic()
	if !cfg.Reranker.Enabled {
		return heuristic
	}
	scorer := httpapi.NewScorer(httpapi.Config{BaseURL: cfg.Reranker.BaseURL})
	return reranker.NewFallback(reranker.NewModel(scorer), heuristic)
}

func buildRegistry() *structurer.Registry {
	return structurer.NewRegistry(
		structurer.NewPDFReader(),
		structurer.NewDocxReader(),
		structurer.NewMarkdownReader(),
		structurer.NewPlainTextReader(),
	)
}

// buildIngest assembles the ingestion pipeline. The returned cleanup
// closes the sidecar store.
func buildIngest() (*services.Ingest, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	ch, err := chunker.New(
		chunker.WithMaxTokens(cfg.Chunker.MaxTokens),
		chunker.WithOverlapTokens(cfg.Chunker.OverlapTokens),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring chunker: %w", err)
	}

	paragraphs, err := sqlite.NewStore(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening paragraph store: %w", err)
	}

	service := services.NewIngest(
		buildRegistry(),
		mapper.New(ch),
		buildEmbedder(),
		captollama.NewCaptioner(captollama.Config{
			BaseURL: cfg.Captioner.BaseURL,
			Model:   cfg.Captioner.Model,
		}),
		buildVectors(),
		paragraphs,
		services.IngestConfig{
			Workers:  cfg.Ingest.Workers,
			ImageDir: cfg.ImageDir(),
		},
	)
	return service, func() { paragraphs.Close() }, nil
}

func buildRetrieve() *services.Retrieve {
	return services.NewRetrieve(
		rewriter.New(),
		buildEmbedder(),
		buildVectors(),
		buildReranker(),
		services.RetrieveConfig{
			MaxRewrites: cfg.Retrieval.MaxRewrites,
			FuseImages:  cfg.Retrieval.FuseImages,
		},
	)
}
