// Package httpapi provides a cross-encoder scorer backed by an HTTP
// reranking endpoint (TEI, Infinity, or any service speaking the same
// /rerank contract).
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Scorer implements the interface.
var _ driven.CrossEncoderScorer = (*Scorer)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "http://localhost:8080"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 32
)

// Config holds configuration for the HTTP cross-encoder.
type Config struct {
	// BaseURL is the reranking service base URL.
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize caps texts per request (default: 32).
	BatchSize int
}

// Scorer scores (query, passage) pairs via an HTTP reranking service.
type Scorer struct {
	client    *http.Client
	baseURL   string
	batchSize int
}

// rerankRequest is the service request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one scored entry; Index refers to the request order.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewScorer creates a new HTTP cross-encoder scorer.
func NewScorer(cfg Config) *Scorer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Scorer{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		batchSize: cfg.BatchSize,
	}
}

// Ready probes the service health endpoint. When false, callers skip to
// the heuristic fallback instead of failing per query.
func (s *Scorer) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Score returns one relevance score per text, preserving input order.
// Requests are batched to keep payloads bounded.
func (s *Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.scoreBatch(ctx, query, texts[start:end])
		if err != nil {
			return nil, err
		}
		scores = append(scores, batch...)
	}
	return scores, nil
}

func (s *Scorer) scoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error (status %d)", resp.StatusCode)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts", len(results), len(texts))
	}

	// Services return results sorted by score; restore request order.
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	scores := make([]float64, len(results))
	for i, r := range results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[i] = r.Score
	}
	return scores, nil
}
