package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_ReturnsCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Images, 1)

		json.NewEncoder(w).Encode(generateResponse{Response: "A bar chart of quarterly revenue."})
	}))
	defer srv.Close()

	c := NewCaptioner(Config{BaseURL: srv.URL})
	got := c.Describe(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47})
	assert.Equal(t, "A bar chart of quarterly revenue.", got)
}

func TestDescribe_TruncatesLongCaptions(t *testing.T) {
	long := strings.Repeat("词", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: long})
	}))
	defer srv.Close()

	c := NewCaptioner(Config{BaseURL: srv.URL})
	got := c.Describe(context.Background(), []byte{1})
	assert.Equal(t, 60, len([]rune(got)))
}

func TestDescribe_PlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCaptioner(Config{BaseURL: srv.URL})
	assert.Equal(t, Placeholder, c.Describe(context.Background(), []byte{1}))
}

func TestDescribe_PlaceholderWhenUnreachable(t *testing.T) {
	c := NewCaptioner(Config{BaseURL: "http://127.0.0.1:1"})
	assert.Equal(t, Placeholder, c.Describe(context.Background(), []byte{1}))
}

func TestDescribe_PlaceholderOnEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   "})
	}))
	defer srv.Close()

	c := NewCaptioner(Config{BaseURL: srv.URL})
	assert.Equal(t, Placeholder, c.Describe(context.Background(), []byte{1}))
}
