// Package qdrant provides a vector store adapter over the Qdrant REST
// API. Paragraphs are stored as points with two named vectors (text and
// image) and the full paragraph record as payload.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:6333"
	DefaultCollection = "passages"
	DefaultTimeout    = 30 * time.Second
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// Collection is the collection name (default: passages).
	Collection string

	// APIKey is sent as api-key header when set.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store talks to Qdrant over REST.
type Store struct {
	client     *http.Client
	baseURL    string
	collection string
	apiKey     string
}

// NewStore creates a new Qdrant store.
func NewStore(cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
	}
}

// pointPayload is the stored paragraph record.
type pointPayload struct {
	Key         string `json:"key"`
	DocumentURI string `json:"document_uri"`
	ParagraphID string `json:"paragraph_id"`
	Text        string `json:"text"`
	Order       int    `json:"order"`
	Section     string `json:"section,omitempty"`
	SourceType  string `json:"source_type"`
	ContentHash string `json:"content_hash"`
	BlockKind   string `json:"block_kind"`
	ImageURI    string `json:"image_uri,omitempty"`
}

// EnsureCollection creates the collection with named text and image
// vectors if it does not already exist.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	status, _, err := s.do(ctx, http.MethodGet, "/collections/"+s.collection, nil)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	vectorParams := map[string]any{"size": dimensions, "distance": "Cosine"}
	body := map[string]any{
		"vectors": map[string]any{
			string(driven.FieldText):  vectorParams,
			string(driven.FieldImage): vectorParams,
		},
	}
	status, respBody, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("creating collection: status %d: %s", status, respBody)
	}
	return nil
}

// Upsert writes paragraphs keyed by Paragraph.Key. Point IDs are derived
// deterministically from the key so re-ingestion overwrites in place.
func (s *Store) Upsert(ctx context.Context, paragraphs []domain.Paragraph) error {
	if len(paragraphs) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(paragraphs))
	for _, p := range paragraphs {
		vectors := map[string]any{}
		if len(p.TextEmbedding) > 0 {
			vectors[string(driven.FieldText)] = p.TextEmbedding
		}
		if len(p.ImageEmbedding) > 0 {
			vectors[string(driven.FieldImage)] = p.ImageEmbedding
		}
		points = append(points, map[string]any{
			"id":     pointID(p.Key),
			"vector": vectors,
			"payload": pointPayload{
				Key:         p.Key,
				DocumentURI: p.DocumentURI,
				ParagraphID: p.ParagraphID,
				Text:        p.Text,
				Order:       p.Order,
				Section:     p.Section,
				SourceType:  string(p.SourceType),
				ContentHash: p.ContentHash,
				BlockKind:   string(p.BlockKind),
				ImageURI:    p.ImageURI,
			},
		})
	}

	status, respBody, err := s.do(ctx, http.MethodPut,
		"/collections/"+s.collection+"/points?wait=true",
		map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upserting points: status %d: %s", status, respBody)
	}
	return nil
}

// searchResponse is the Qdrant search result envelope.
type searchResponse struct {
	Result []struct {
		Score   float64      `json:"score"`
		Payload pointPayload `json:"payload"`
	} `json:"result"`
}

// Search returns the closest paragraphs to the query vector in the given
// named vector space.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, field driven.VectorField) ([]driven.Hit, error) {
	body := map[string]any{
		"vector": map[string]any{
			"name":   string(field),
			"vector": vector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	status, respBody, err := s.do(ctx, http.MethodPost,
		"/collections/"+s.collection+"/points/search", body)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("searching: status %d: %s", status, respBody)
	}

	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]driven.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, driven.Hit{
			Paragraph: domain.Paragraph{
				Key:         r.Payload.Key,
				DocumentURI: r.Payload.DocumentURI,
				ParagraphID: r.Payload.ParagraphID,
				Text:        r.Payload.Text,
				Order:       r.Payload.Order,
				Section:     r.Payload.Section,
				SourceType:  domain.SourceType(r.Payload.SourceType),
				ContentHash: r.Payload.ContentHash,
				BlockKind:   domain.BlockKind(r.Payload.BlockKind),
				ImageURI:    r.Payload.ImageURI,
			},
			Score: r.Score,
		})
	}
	return hits, nil
}

// DeleteDocument removes every point whose payload carries the given
// document URI.
func (s *Store) DeleteDocument(ctx context.Context, documentURI string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_uri", "match": map[string]any{"value": documentURI}},
			},
		},
	}
	status, respBody, err := s.do(ctx, http.MethodPost,
		"/collections/"+s.collection+"/points/delete?wait=true", body)
	if err != nil {
		return fmt.Errorf("deleting document points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("deleting document points: status %d: %s", status, respBody)
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// pointID derives a stable UUID from the paragraph key. Qdrant requires
// UUID or integer point IDs; hashing the key keeps upserts idempotent.
func pointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
