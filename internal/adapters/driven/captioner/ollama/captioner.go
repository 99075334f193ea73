// Package ollama provides an image captioner backed by an Ollama vision
// model.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
)

// Ensure Captioner implements the interface.
var _ driven.Captioner = (*Captioner)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llava"
	DefaultTimeout = 60 * time.Second

	// Placeholder is returned whenever captioning fails; the pipeline
	// treats captions as best-effort.
	Placeholder = "embedded image"

	// maxCaptionLen caps captions so they stay usable as paragraph text.
	maxCaptionLen = 60
)

const captionPrompt = "Describe this image in one short sentence."

// Config holds configuration for the Ollama captioner.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the vision model to use (default: llava).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Captioner describes images using an Ollama vision model.
type Captioner struct {
	client  *http.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama API request format.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

// generateResponse is the Ollama API response format.
type generateResponse struct {
	Response string `json:"response"`
}

// NewCaptioner creates a new Ollama captioner.
func NewCaptioner(cfg Config) *Captioner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Captioner{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Describe returns a short description of the image bytes. It never
// fails; any error yields the fixed placeholder.
func (c *Captioner) Describe(ctx context.Context, data []byte) string {
	caption, err := c.generate(ctx, data)
	if err != nil {
		logger.Warn("captioner: %v", err)
		return Placeholder
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return Placeholder
	}
	return truncate(caption, maxCaptionLen)
}

func (c *Captioner) generate(ctx context.Context, data []byte) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: captionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (status %d)", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// truncate cuts at a rune boundary so CJK captions are not split
// mid-character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
