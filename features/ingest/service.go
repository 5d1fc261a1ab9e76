package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/faiqfarooq/Codebase-RAG/internal/text"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type ChunkStore interface {
	Upsert(ctx context.Context, chunks []text.Chunk) error
	DeleteByFilename(ctx context.Context, filename string) error
}

// Result aggregates counters over one ingestion batch. It is not persisted
// beyond the response.
type Result struct {
	FilesProcessed int
	ChunksCreated  int
	FilesFailed    int
}

// Message summarizes the batch for the API response, including partial
// failures.
func (r *Result) Message(prefix string) string {
	if r.FilesFailed == 0 {
		return prefix
	}
	return fmt.Sprintf("%s (%d files failed and were skipped)", prefix, r.FilesFailed)
}

type Service struct {
	embedder    Embedder
	store       ChunkStore
	window      int
	overlap     int
	minChars    int
	concurrency int
}

func NewService(embedder Embedder, store ChunkStore, window, overlap, minChars, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		embedder:    embedder,
		store:       store,
		window:      window,
		overlap:     overlap,
		minChars:    minChars,
		concurrency: concurrency,
	}
}

// IngestDirectory loads, chunks, embeds, and indexes every supported file
// under path.
func (s *Service) IngestDirectory(ctx context.Context, path string) (*Result, error) {
	docs, err := LoadDirectory(path)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoSourceFiles
	}
	return s.ingestDocuments(ctx, docs), nil
}

// IngestArchive extracts a ZIP archive into a temporary directory and ingests
// its contents. The extracted tree is removed afterwards.
func (s *Service) IngestArchive(ctx context.Context, zipPath string) (*Result, error) {
	tempDir, err := os.MkdirTemp("", "codebase-upload-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	extractPath := filepath.Join(tempDir, "extracted")
	if err := os.MkdirAll(extractPath, 0o750); err != nil {
		return nil, err
	}
	if err := ExtractArchive(zipPath, extractPath); err != nil {
		return nil, err
	}
	return s.IngestDirectory(ctx, extractPath)
}

// IngestRepo shallow-clones a repository into a temporary directory and
// ingests its contents. The clone is removed afterwards.
func (s *Service) IngestRepo(ctx context.Context, repoURL string) (*Result, error) {
	normalized, err := NormalizeRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "codebase-repo-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	clonePath := filepath.Join(tempDir, "repo")
	if err := CloneRepo(ctx, normalized, clonePath); err != nil {
		return nil, err
	}
	return s.IngestDirectory(ctx, clonePath)
}

// ingestDocuments processes files independently: one file's failure is
// counted and logged, never aborts the batch. Re-ingestion policy is
// replace: chunks indexed under the same filename are deleted before the new
// batch is upserted, so repeating an unchanged ingestion is idempotent.
func (s *Service) ingestDocuments(ctx context.Context, docs []Document) *Result {
	res := &Result{}

	for _, doc := range docs {
		chunks := text.Split(doc.Path, doc.Content, doc.FileType, s.window, s.overlap, s.minChars)
		if len(chunks) == 0 {
			// A file that no longer yields chunks still replaces its
			// previously indexed ones, or stale chunks stay citable.
			if err := s.store.DeleteByFilename(ctx, doc.Path); err != nil {
				slog.ErrorContext(ctx, "replace delete failed, skipping file", "file", doc.Path, "error", err)
				res.FilesFailed++
				continue
			}
			res.FilesProcessed++
			continue
		}

		if err := s.embedChunks(ctx, chunks); err != nil {
			slog.ErrorContext(ctx, "embedding failed, skipping file", "file", doc.Path, "error", err)
			res.FilesFailed++
			continue
		}

		if err := s.store.DeleteByFilename(ctx, doc.Path); err != nil {
			slog.ErrorContext(ctx, "replace delete failed, skipping file", "file", doc.Path, "error", err)
			res.FilesFailed++
			continue
		}
		if err := s.store.Upsert(ctx, chunks); err != nil {
			slog.ErrorContext(ctx, "upsert failed, skipping file", "file", doc.Path, "error", err)
			res.FilesFailed++
			continue
		}

		res.FilesProcessed++
		res.ChunksCreated += len(chunks)
	}

	slog.InfoContext(ctx, "ingestion batch complete",
		"files_processed", res.FilesProcessed,
		"chunks_created", res.ChunksCreated,
		"files_failed", res.FilesFailed)
	return res
}

// embedChunks fills in embeddings with bounded parallelism. Results land in
// the slice slot matching their chunk, so document order survives whatever
// order the provider calls complete in.
func (s *Service) embedChunks(ctx context.Context, chunks []text.Chunk) error {
	sem := make(chan struct{}, s.concurrency)
	errCh := make(chan error, len(chunks))

	for i := range chunks {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()

			vec, err := s.embedder.Embed(ctx, chunks[idx].Text)
			if err != nil {
				errCh <- fmt.Errorf("embed chunk %s: %w", chunks[idx].ID, err)
				return
			}
			chunks[idx].Embedding = vec
			errCh <- nil
		}(i)
	}

	var firstErr error
	for range chunks {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
