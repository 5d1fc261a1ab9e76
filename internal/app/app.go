package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/faiqfarooq/Codebase-RAG/features/chat"
	"github.com/faiqfarooq/Codebase-RAG/features/ingest"
	"github.com/faiqfarooq/Codebase-RAG/internal/adapter/openai"
	"github.com/faiqfarooq/Codebase-RAG/internal/config"
	"github.com/faiqfarooq/Codebase-RAG/internal/middleware"
	"github.com/faiqfarooq/Codebase-RAG/internal/retrieval"
	"github.com/faiqfarooq/Codebase-RAG/internal/text"
)

// VectorStore is what the HTTP surface needs from the chunk index.
// *weaviate.Store satisfies it; tests substitute fakes.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []text.Chunk) error
	DeleteByFilename(ctx context.Context, filename string) error
	Query(ctx context.Context, vec []float32, k int) ([]retrieval.ScoredChunk, error)
}

type App struct {
	Handler http.Handler
	port    int
}

func New(cfg *config.Config, vecStore VectorStore) (*App, error) {
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second

	// Adapters: embeddings always go through OpenAI, chat is per-request.
	embedder := openai.NewEmbedder(cfg.OpenAIAPIKey, "", cfg.EmbeddingModel, cfg.EmbeddingDimension, providerTimeout)

	backends := map[string]chat.ModelBackend{}
	defaultModel := ""
	if cfg.DeepSeekAPIKey != "" {
		backends["deepseek"] = openai.NewChatClient(cfg.DeepSeekAPIKey, cfg.DeepSeekAPIBase, "deepseek-chat", providerTimeout)
		defaultModel = "deepseek"
	}
	if cfg.OpenAIAPIKey != "" {
		backends["chatgpt"] = openai.NewChatClient(cfg.OpenAIAPIKey, "", "gpt-4o-mini", providerTimeout)
		if defaultModel == "" {
			defaultModel = "chatgpt"
		}
	}

	// Feature: Ingest
	ingestService := ingest.NewService(embedder, vecStore,
		cfg.ChunkWindowLines, cfg.ChunkOverlapLines, cfg.ChunkMinChars, cfg.EmbedConcurrency)
	ingestHandler := ingest.NewHandler(ingestService, cfg.UploadDir, cfg.MaxUploadSizeMB<<20)

	// Feature: Chat (retrieval + composition + citation binding)
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore,
		cfg.EmbeddingDimension, cfg.SearchTopK, cfg.SearchMinScore, queryLogger)

	chatService := chat.NewService(retrievalService, backends, defaultModel)
	chatHandler := chat.NewHandler(chatService)

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /ingest", middleware.CorrelationID(middleware.CORS(ingestHandler.Directory)))
	mux.Handle("POST /ingest/upload", middleware.CorrelationID(middleware.CORS(ingestHandler.Upload)))
	mux.Handle("POST /ingest/repo", middleware.CorrelationID(middleware.CORS(ingestHandler.Repo)))

	mux.Handle("POST /chat", middleware.CorrelationID(middleware.CORS(chatHandler.Chat)))
	mux.Handle("OPTIONS /", middleware.CORS(func(w http.ResponseWriter, r *http.Request) {}))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler: mux,
		port:    cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
