package driving

import "context"

// IngestStats summarises an ingestion run.
type IngestStats struct {
	// Documents is the number of files ingested.
	Documents int

	// Paragraphs is the number of paragraph records upserted.
	Paragraphs int

	// Skipped is the number of paragraphs skipped because their content
	// hash was unchanged.
	Skipped int

	// Failed is the number of files that could not be ingested.
	Failed int
}

// IngestService turns files into searchable paragraphs.
type IngestService interface {
	// IngestFile ingests a single file.
	IngestFile(ctx context.Context, path string) (IngestStats, error)

	// IngestDir walks a directory and ingests every supported file,
	// running independent documents on a worker pool.
	IngestDir(ctx context.Context, dir string) (IngestStats, error)

	// Watch re-ingests files under dir as they change, until the
	// context is cancelled.
	Watch(ctx context.Context, dir string) error
}
