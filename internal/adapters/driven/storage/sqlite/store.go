// Package sqlite provides the local paragraph sidecar store.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The store lets ingestion skip re-embedding unchanged
// paragraphs and makes results inspectable without the vector database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ParagraphStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS paragraphs (
	key          TEXT PRIMARY KEY,
	document_uri TEXT NOT NULL,
	paragraph_id TEXT NOT NULL,
	text         TEXT NOT NULL,
	ord          INTEGER NOT NULL,
	section      TEXT NOT NULL DEFAULT '',
	source_type  TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	block_kind   TEXT NOT NULL,
	image_uri    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_paragraphs_document ON paragraphs(document_uri);
`

// Store persists paragraphs in a local SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path. ":memory:"
// gives an ephemeral store for tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert writes a paragraph keyed by Paragraph.Key.
func (s *Store) Upsert(ctx context.Context, p domain.Paragraph) error {
	if p.Key == "" {
		return fmt.Errorf("paragraph key is empty: %w", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paragraphs (key, document_uri, paragraph_id, text, ord, section, source_type, content_hash, block_kind, image_uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			document_uri = excluded.document_uri,
			paragraph_id = excluded.paragraph_id,
			text         = excluded.text,
			ord          = excluded.ord,
			section      = excluded.section,
			source_type  = excluded.source_type,
			content_hash = excluded.content_hash,
			block_kind   = excluded.block_kind,
			image_uri    = excluded.image_uri
	`, p.Key, p.DocumentURI, p.ParagraphID, p.Text, p.Order, p.Section,
		string(p.SourceType), p.ContentHash, string(p.BlockKind), p.ImageURI)
	if err != nil {
		return fmt.Errorf("upserting paragraph %s: %w", p.Key, err)
	}
	return nil
}

// Get returns the paragraph with the given key.
func (s *Store) Get(ctx context.Context, key string) (domain.Paragraph, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, document_uri, paragraph_id, text, ord, section, source_type, content_hash, block_kind, image_uri
		FROM paragraphs WHERE key = ?
	`, key)

	var p domain.Paragraph
	var sourceType, blockKind string
	err := row.Scan(&p.Key, &p.DocumentURI, &p.ParagraphID, &p.Text, &p.Order,
		&p.Section, &sourceType, &p.ContentHash, &blockKind, &p.ImageURI)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Paragraph{}, fmt.Errorf("paragraph %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Paragraph{}, fmt.Errorf("querying paragraph %s: %w", key, err)
	}
	p.SourceType = domain.SourceType(sourceType)
	p.BlockKind = domain.BlockKind(blockKind)
	return p, nil
}

// Has reports whether a paragraph with the given key exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM paragraphs WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking paragraph %s: %w", key, err)
	}
	return true, nil
}

// DeleteDocument removes all paragraphs for the given document URI.
func (s *Store) DeleteDocument(ctx context.Context, documentURI string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM paragraphs WHERE document_uri = ?`, documentURI)
	if err != nil {
		return fmt.Errorf("deleting paragraphs for %s: %w", documentURI, err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
