package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/faiqfarooq/Codebase-RAG/internal/middleware"
	"github.com/faiqfarooq/Codebase-RAG/internal/text"
	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

// ScoredChunk is a retrieved chunk paired with its similarity score.
// Score is cosine similarity in [-1, 1].
type ScoredChunk struct {
	Chunk text.Chunk
	Score float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type Index interface {
	Query(ctx context.Context, vec []float32, k int) ([]ScoredChunk, error)
}

type Service struct {
	embedder  Embedder
	index     Index
	dimension int
	topK      int
	minScore  float32
	logger    *QueryLogger
}

// NewService builds a retriever over an embedder and a vector index. The
// dimension is the one the index was created with; queries embedded to a
// different dimensionality fail with vector.ErrDimensionMismatch rather than
// producing silently meaningless similarity scores.
func NewService(e Embedder, idx Index, dimension, topK int, minScore float32, l *QueryLogger) *Service {
	return &Service{
		embedder:  e,
		index:     idx,
		dimension: dimension,
		topK:      topK,
		minScore:  minScore,
		logger:    l,
	}
}

// Retrieve embeds the query and returns the chunks above the relevance
// threshold, best first. An empty result is not an error: the caller decides
// what an answer without grounding looks like.
func (s *Service) Retrieve(ctx context.Context, query string) ([]ScoredChunk, error) {
	start := time.Now()
	var final []ScoredChunk
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				CorrelationID: middleware.GetCorrelationID(ctx),
				Query:         query,
				NumResults:    len(final),
				LatencyMs:     time.Since(start).Milliseconds(),
			})
		}
	}()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(vec) != s.dimension {
		err = fmt.Errorf("%w: query embedded to %d dims, index built with %d",
			vector.ErrDimensionMismatch, len(vec), s.dimension)
		return nil, err
	}

	results, err := s.index.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Score >= s.minScore {
			final = append(final, r)
		}
	}

	return final, nil
}
