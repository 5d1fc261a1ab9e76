package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faiqfarooq/Codebase-RAG/features/chat"
	"github.com/faiqfarooq/Codebase-RAG/internal/llm"
	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
	"github.com/faiqfarooq/Codebase-RAG/internal/text"
)

type MockRetriever struct{ mock.Mock }

func (m *MockRetriever) Retrieve(ctx context.Context, query string) ([]retrieval.ScoredChunk, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.ScoredChunk), args.Error(1)
}

type MockBackend struct{ mock.Mock }

func (m *MockBackend) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func utilsChunk() retrieval.ScoredChunk {
	return retrieval.ScoredChunk{
		Chunk: text.Chunk{
			ID:        "utils.py:16-35",
			Filename:  "utils.py",
			StartLine: 16,
			EndLine:   35,
			FileType:  "py",
			Text:      "def retry():\n    for attempt in range(3):\n        ...",
		},
		Score: 0.9,
	}
}

func newService(r chat.Retriever, b chat.ModelBackend) *chat.Service {
	return chat.NewService(r, map[string]chat.ModelBackend{"deepseek": b}, "deepseek")
}

func TestService_Ask_GroundedAnswerWithVerifiedSource(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	r.On("Retrieve", mock.Anything, "how does retry logic work?").
		Return([]retrieval.ScoredChunk{utilsChunk()}, nil)
	b.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		// Context block must carry the citable anchor and the verbatim chunk.
		return strings.Contains(prompt, "[utils.py:16]") && strings.Contains(prompt, "def retry():")
	})).Return("Retries happen in a loop, see utils.py:20.", nil)

	res, err := newService(r, b).Ask(context.Background(), "how does retry logic work?", "")
	require.NoError(t, err)

	assert.Contains(t, res.Response, "utils.py:20")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "utils.py", res.Sources[0].Filename)
	assert.Equal(t, 16, res.Sources[0].StartLine)
}

func TestService_Ask_HallucinatedCitationDropped(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	r.On("Retrieve", mock.Anything, "q").Return([]retrieval.ScoredChunk{utilsChunk()}, nil)
	b.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("The answer is in missing.py:5.", nil)

	res, err := newService(r, b).Ask(context.Background(), "q", "deepseek")
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
}

func TestService_Ask_EmptyIndex(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	r.On("Retrieve", mock.Anything, "q").Return([]retrieval.ScoredChunk{}, nil)
	b.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "No relevant code was found")
	})).Return("I could not find matching code.", nil)

	res, err := newService(r, b).Ask(context.Background(), "q", "")
	require.NoError(t, err)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
}

func TestService_Ask_UnknownModel(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	_, err := newService(r, b).Ask(context.Background(), "q", "claude")
	assert.ErrorIs(t, err, chat.ErrUnknownModel)
	r.AssertNotCalled(t, "Retrieve")
}

func TestService_Ask_ModelAliases(t *testing.T) {
	r := &MockRetriever{}
	deepseek := &MockBackend{}
	gpt := &MockBackend{}

	r.On("Retrieve", mock.Anything, "q").Return([]retrieval.ScoredChunk{}, nil)
	gpt.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("hi", nil)

	svc := chat.NewService(r, map[string]chat.ModelBackend{
		"deepseek": deepseek,
		"chatgpt":  gpt,
	}, "deepseek")

	_, err := svc.Ask(context.Background(), "q", "GPT")
	require.NoError(t, err)
	gpt.AssertExpectations(t)
	deepseek.AssertNotCalled(t, "Generate")
}

func TestService_Ask_ProviderErrorPropagates(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	r.On("Retrieve", mock.Anything, "q").Return([]retrieval.ScoredChunk{utilsChunk()}, nil)
	b.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", llm.NewProviderError(llm.KindRateLimited, errors.New("429")))

	_, err := newService(r, b).Ask(context.Background(), "q", "")
	require.Error(t, err)

	var provErr *llm.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, llm.KindRateLimited, provErr.Kind)
}

func TestService_Ask_RetrieverErrorPropagates(t *testing.T) {
	r := &MockRetriever{}
	b := &MockBackend{}

	r.On("Retrieve", mock.Anything, "q").Return(nil, errors.New("index down"))

	_, err := newService(r, b).Ask(context.Background(), "q", "")
	assert.Error(t, err)
	b.AssertNotCalled(t, "Generate")
}
