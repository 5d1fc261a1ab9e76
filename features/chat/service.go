package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
)

var ErrUnknownModel = errors.New("unknown model")

// Source is the response projection of a retrieved chunk backing a verified
// citation. Preview is the chunk's verbatim text, never model output.
type Source struct {
	Filename  string `json:"filename"`
	StartLine int    `json:"start_line"`
	FileType  string `json:"file_type"`
	Preview   string `json:"preview"`
}

// Result is one answered chat query. Every Source traces back to a chunk the
// retriever returned for this query; unverifiable citations are dropped
// before they get here.
type Result struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.ScoredChunk, error)
}

type ModelBackend interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Service struct {
	retriever    Retriever
	backends     map[string]ModelBackend
	defaultModel string
}

// NewService binds the retriever and the model backends available for
// per-request selection. Backends are injected at construction; the request
// only picks among them by name.
func NewService(retriever Retriever, backends map[string]ModelBackend, defaultModel string) *Service {
	return &Service{
		retriever:    retriever,
		backends:     backends,
		defaultModel: defaultModel,
	}
}

// Ask answers a query grounded in retrieved chunks. An empty index (or no
// chunk above the relevance threshold) is not an error: the model is told no
// context was found and the result carries zero sources.
func (s *Service) Ask(ctx context.Context, query, model string) (*Result, error) {
	backend, err := s.resolveBackend(model)
	if err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	answer, err := Compose(ctx, query, chunks, backend)
	if err != nil {
		return nil, err
	}

	sources := BindCitations(answer, chunks)
	slog.InfoContext(ctx, "chat answered",
		"retrieved", len(chunks),
		"verified_sources", len(sources))

	return &Result{Response: answer, Sources: sources}, nil
}

func (s *Service) resolveBackend(model string) (ModelBackend, error) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		name = s.defaultModel
	}
	if name == "gpt" {
		name = "chatgpt"
	}

	backend, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return backend, nil
}
