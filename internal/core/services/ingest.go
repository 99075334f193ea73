// Package services implements the driving ports: the ingestion pipeline
// and the retrieval pipeline.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/core/ports/driving"
	"github.com/passage-dev/passage/internal/logger"
	"github.com/passage-dev/passage/internal/mapper"
	"github.com/passage-dev/passage/internal/structurer"
)

// Ensure Ingest implements the interface.
var _ driving.IngestService = (*Ingest)(nil)

// DefaultWorkers is the directory ingestion pool size.
const DefaultWorkers = 4

// IngestConfig holds configuration for the ingest service.
type IngestConfig struct {
	// Workers is the worker pool size for directory ingestion
	// (default: 4).
	Workers int

	// ImageDir is where extracted image bytes are persisted so captions
	// can link back to them. Empty disables persistence.
	ImageDir string
}

// Ingest runs files through structuring, chunking, mapping, captioning,
// embedding and storage.
type Ingest struct {
	registry   *structurer.Registry
	mapper     *mapper.Mapper
	embedder   driven.EmbeddingService
	captioner  driven.Captioner
	vectors    driven.VectorStore
	paragraphs driven.ParagraphStore
	workers    int
	imageDir   string
}

// NewIngest creates the ingest service.
func NewIngest(
	registry *structurer.Registry,
	m *mapper.Mapper,
	embedder driven.EmbeddingService,
	captioner driven.Captioner,
	vectors driven.VectorStore,
	paragraphs driven.ParagraphStore,
	cfg IngestConfig,
) *Ingest {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Ingest{
		registry:   registry,
		mapper:     m,
		embedder:   embedder,
		captioner:  captioner,
		vectors:    vectors,
		paragraphs: paragraphs,
		workers:    cfg.Workers,
		imageDir:   cfg.ImageDir,
	}
}

// IngestFile ingests a single file.
func (s *Ingest) IngestFile(ctx context.Context, path string) (driving.IngestStats, error) {
	var stats driving.IngestStats

	blocks, sourceType, err := s.registry.Read(ctx, path)
	if err != nil {
		return stats, fmt.Errorf("structuring %s: %w", path, err)
	}

	if err := s.vectors.EnsureCollection(ctx, s.embedder.Dimensions()); err != nil {
		return stats, fmt.Errorf("ensuring collection: %w", err)
	}

	docURI := documentURI(path)
	logger.Section("ingest " + path)

	var batch []domain.Paragraph
	order := 0
	section := ""
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var meta *mapper.ImageMeta
		var imageData []byte
		if img, ok := block.(domain.ImageBlock); ok {
			meta, imageData = s.resolveImage(ctx, img)
		}

		var paragraphs []domain.Paragraph
		paragraphs, order, section = s.mapper.Map(block, docURI, order, section, sourceType, meta)

		for _, p := range paragraphs {
			known, err := s.paragraphs.Has(ctx, p.Key)
			if err != nil {
				return stats, fmt.Errorf("checking paragraph %s: %w", p.Key, err)
			}
			if known {
				stats.Skipped++
				continue
			}

			p.TextEmbedding, err = s.embedder.Embed(ctx, p.Text)
			if err != nil {
				return stats, fmt.Errorf("embedding paragraph %s: %w", p.Key, err)
			}
			if len(imageData) > 0 {
				p.ImageEmbedding, err = s.embedder.EmbedImage(ctx, imageData)
				if err != nil {
					return stats, fmt.Errorf("embedding image for %s: %w", p.Key, err)
				}
			}

			if err := s.paragraphs.Upsert(ctx, p); err != nil {
				return stats, fmt.Errorf("storing paragraph %s: %w", p.Key, err)
			}
			batch = append(batch, p)
			stats.Paragraphs++
		}
	}

	if err := s.vectors.Upsert(ctx, batch); err != nil {
		return stats, fmt.Errorf("upserting vectors for %s: %w", path, err)
	}

	stats.Documents = 1
	logger.Info("ingested %s: %d paragraphs, %d unchanged", path, stats.Paragraphs, stats.Skipped)
	return stats, nil
}

// IngestDir walks the directory and ingests every supported file on a
// worker pool. A file that fails is counted, logged and does not stop
// the walk.
func (s *Ingest) IngestDir(ctx context.Context, dir string) (driving.IngestStats, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := s.registry.For(path); err == nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return driving.IngestStats{}, fmt.Errorf("walking %s: %w", dir, err)
	}

	var mu sync.Mutex
	var total driving.IngestStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			stats, err := s.IngestFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("ingest %s: %v", path, err)
				total.Failed++
				return nil
			}
			total.Documents += stats.Documents
			total.Paragraphs += stats.Paragraphs
			total.Skipped += stats.Skipped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

// Watch re-ingests files under dir as they change, until the context is
// cancelled. New subdirectories are picked up as they appear.
func (s *Ingest) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching %s", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

func (s *Ingest) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if err := watcher.Add(event.Name); err != nil {
			logger.Warn("watching %s: %v", event.Name, err)
		}
		return
	}

	if _, err := s.registry.For(event.Name); err != nil {
		return
	}
	if _, err := s.IngestFile(ctx, event.Name); err != nil {
		logger.Warn("re-ingest %s: %v", event.Name, err)
	}
}

// DeleteDocument removes a document's paragraphs from both stores.
func (s *Ingest) DeleteDocument(ctx context.Context, path string) error {
	docURI := documentURI(path)
	if err := s.vectors.DeleteDocument(ctx, docURI); err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", docURI, err)
	}
	if err := s.paragraphs.DeleteDocument(ctx, docURI); err != nil {
		return fmt.Errorf("deleting paragraphs for %s: %w", docURI, err)
	}
	return nil
}

// resolveImage captions the image and persists its bytes so the caption
// can link back to the stored file. Both steps are best-effort.
func (s *Ingest) resolveImage(ctx context.Context, img domain.ImageBlock) (*mapper.ImageMeta, []byte) {
	meta := &mapper.ImageMeta{URI: img.ResolvedPath}
	if len(img.Data) == 0 {
		meta.Caption = img.AltText
		return meta, nil
	}

	meta.Caption = s.captioner.Describe(ctx, img.Data)
	if meta.URI == "" && s.imageDir != "" {
		if path, err := s.saveImage(img.Data); err != nil {
			logger.Warn("saving image: %v", err)
		} else {
			meta.URI = path
		}
	}
	return meta, img.Data
}

func (s *Ingest) saveImage(data []byte) (string, error) {
	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	path := filepath.Join(s.imageDir, hex.EncodeToString(sum[:8])+".bin")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// documentURI canonicalises a file path so the same document always maps
// to the same URI regardless of how it was referenced.
func documentURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}
