package weaviate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
	"github.com/faiqfarooq/Codebase-RAG/internal/text"
	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

// Store is the vector-index adapter over a Weaviate instance. Mutations are
// serialized with a mutex so a query never observes an interleaved half of
// two batches; queries run concurrently and may see a partially updated
// index (eventual consistency, documented in the service contract).
type Store struct {
	client *weaviate.Client
	mu     sync.Mutex
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes one batch of embedded chunks. Slice order is preserved in
// the request, so determinism downstream only depends on document order.
func (s *Store) Upsert(ctx context.Context, chunks []text.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects := make([]*models.Object, 0, len(chunks))
	for _, c := range chunks {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"content":   c.Text,
				"filename":  c.Filename,
				"startLine": c.StartLine,
				"endLine":   c.EndLine,
				"fileType":  c.FileType,
				"chunkId":   c.ID,
			},
			Vector: models.C11yVector(c.Embedding),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: batch upsert: %v", vector.ErrIndexUnavailable, err)
	}

	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert object failed: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByFilename removes every chunk indexed under the given filename.
// This backs the replace re-ingestion policy.
func (s *Store) DeleteByFilename(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"filename"}).
			WithOperator(filters.Equal).
			WithValueString(filename)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete by filename: %v", vector.ErrIndexUnavailable, err)
	}
	return nil
}

// Query returns the k nearest chunks by cosine similarity, best first.
// Ties are broken by filename then start line so repeated queries over the
// same index are reproducible.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]retrieval.ScoredChunk, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "filename"},
		{Name: "startLine"},
		{Name: "endLine"},
		{Name: "fileType"},
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: near-vector query: %v", vector.ErrIndexUnavailable, err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	results := mapResults(res.Data)

	// Weaviate's ordering for equal distances is undefined; re-sort with
	// deterministic tie-breaks.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.Filename != results[j].Chunk.Filename {
			return results[i].Chunk.Filename < results[j].Chunk.Filename
		}
		return results[i].Chunk.StartLine < results[j].Chunk.StartLine
	})

	return results, nil
}

func mapResults(data map[string]models.JSONObject) []retrieval.ScoredChunk {
	var results []retrieval.ScoredChunk

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	rows, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return results
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		var c text.Chunk
		if v, ok := props["content"].(string); ok {
			c.Text = v
		}
		if v, ok := props["filename"].(string); ok {
			c.Filename = v
		}
		if v, ok := props["startLine"].(float64); ok {
			c.StartLine = int(v)
		}
		if v, ok := props["endLine"].(float64); ok {
			c.EndLine = int(v)
		}
		if v, ok := props["fileType"].(string); ok {
			c.FileType = v
		}
		if v, ok := props["chunkId"].(string); ok {
			c.ID = v
		}

		var score float32
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			// Cosine distance is 1 - cos(a, b); invert back to similarity.
			switch d := additional["distance"].(type) {
			case float64:
				score = float32(1 - d)
			case string:
				if f, err := strconv.ParseFloat(d, 64); err == nil {
					score = float32(1 - f)
				}
			}
		}

		results = append(results, retrieval.ScoredChunk{Chunk: c, Score: score})
	}

	return results
}
