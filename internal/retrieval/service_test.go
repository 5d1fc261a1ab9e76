package retrieval_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/faiqfarooq/Codebase-RAG/internal/middleware"
	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
	"github.com/faiqfarooq/Codebase-RAG/internal/text"
	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, t string) ([]float32, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Dimension() int {
	args := m.Called()
	return args.Int(0)
}

type MockIndex struct{ mock.Mock }

func (m *MockIndex) Query(ctx context.Context, vec []float32, k int) ([]retrieval.ScoredChunk, error) {
	args := m.Called(ctx, vec, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.ScoredChunk), args.Error(1)
}

func chunk(filename string, start, end int, score float32) retrieval.ScoredChunk {
	return retrieval.ScoredChunk{
		Chunk: text.Chunk{Filename: filename, StartLine: start, EndLine: end, FileType: "py", Text: "body"},
		Score: score,
	}
}

func TestService_Retrieve(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		setup   func(*MockEmbedder, *MockIndex)
		wantLen   int
		wantErr   bool
		wantErrIs error
		check     func(*testing.T, []retrieval.ScoredChunk)
	}{
		{
			name:  "Success",
			query: "how does retry logic work?",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "how does retry logic work?").Return([]float32{0.1, 0.2}, nil)
				idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 5).
					Return([]retrieval.ScoredChunk{
						chunk("utils.py", 16, 35, 0.9),
						chunk("main.py", 1, 20, 0.5),
					}, nil)
			},
			wantLen: 2,
			check: func(t *testing.T, res []retrieval.ScoredChunk) {
				assert.Equal(t, "utils.py", res[0].Chunk.Filename)
			},
		},
		{
			name:  "Below Threshold Filtered",
			query: "q",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return([]float32{0.1, 0.2}, nil)
				idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 5).
					Return([]retrieval.ScoredChunk{
						chunk("a.py", 1, 20, 0.8),
						chunk("b.py", 1, 20, 0.1),
						chunk("c.py", 1, 20, -0.2),
					}, nil)
			},
			wantLen: 1,
		},
		{
			name:  "Empty Index",
			query: "q",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return([]float32{0.1, 0.2}, nil)
				idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 5).
					Return([]retrieval.ScoredChunk{}, nil)
			},
			wantLen: 0,
		},
		{
			name:  "Embed Failure",
			query: "q",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return(nil, errors.New("rate limited"))
			},
			wantErr: true,
		},
		{
			name:  "Dimension Mismatch",
			query: "q",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return([]float32{0.1, 0.2, 0.3}, nil)
			},
			wantErr:   true,
			wantErrIs: vector.ErrDimensionMismatch,
		},
		{
			name:  "Index Failure",
			query: "q",
			setup: func(e *MockEmbedder, idx *MockIndex) {
				e.On("Embed", mock.Anything, "q").Return([]float32{0.1, 0.2}, nil)
				idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 5).
					Return(nil, vector.ErrIndexUnavailable)
			},
			wantErr:   true,
			wantErrIs: vector.ErrIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &MockEmbedder{}
			idx := &MockIndex{}
			tt.setup(e, idx)

			svc := retrieval.NewService(e, idx, 2, 5, 0.2, nil)
			got, err := svc.Retrieve(context.Background(), tt.query)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				return
			}

			assert.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
			if tt.check != nil {
				tt.check(t, got)
			}

			e.AssertExpectations(t)
			idx.AssertExpectations(t)
		})
	}
}

func TestService_Retrieve_LogsQueries(t *testing.T) {
	e := &MockEmbedder{}
	idx := &MockIndex{}
	e.On("Embed", mock.Anything, "logged query").Return([]float32{0.1, 0.2}, nil)
	idx.On("Query", mock.Anything, []float32{0.1, 0.2}, 5).
		Return([]retrieval.ScoredChunk{chunk("a.py", 1, 20, 0.9)}, nil)

	var buf bytes.Buffer
	logger := retrieval.NewQueryLogger(&buf)

	svc := retrieval.NewService(e, idx, 2, 5, 0.2, logger)
	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")
	_, err := svc.Retrieve(ctx, "logged query")
	assert.NoError(t, err)

	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "logged query", entry["query"])
	assert.Equal(t, float64(1), entry["num_results"])
	assert.Equal(t, "corr-123", entry["correlation_id"])
}
