package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 400, cfg.Chunker.MaxTokens)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.False(t, cfg.Qdrant.Enabled)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/var/lib/passage"

[embedding]
model = "mxbai-embed-large"
dimensions = 1024

[qdrant]
enabled = true
collection = "docs"

[retrieval]
fuse_images = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/passage", cfg.DataDir)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.True(t, cfg.Qdrant.Enabled)
	assert.Equal(t, "docs", cfg.Qdrant.Collection)
	assert.True(t, cfg.Retrieval.FuseImages)

	// Untouched sections keep their defaults.
	assert.Equal(t, "llava", cfg.Captioner.Model)
	assert.Equal(t, 40, cfg.Chunker.OverlapTokens)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[not toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "paragraphs.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join("/data", "images"), cfg.ImageDir())
}
