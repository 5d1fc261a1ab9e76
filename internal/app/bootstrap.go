package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	wstore "github.com/faiqfarooq/Codebase-RAG/internal/adapter/weaviate"
	"github.com/faiqfarooq/Codebase-RAG/internal/config"
	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

type Dependencies struct {
	VectorStore *wstore.Store
}

// Bootstrap connects external dependencies and prepares the vector schema.
// Weaviate may still be starting when the service comes up, so schema
// creation retries before giving up.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	schemaClient := vector.NewSchemaAdapter(wClient)
	if err := EnsureSchemaWithRetry(ctx, schemaClient, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}

	return &Dependencies{
		VectorStore: wstore.NewStore(wClient),
	}, nil
}

func EnsureSchemaWithRetry(ctx context.Context, client vector.SchemaClient, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = vector.EnsureSchema(ctx, client); err == nil {
			return nil
		}
		slog.Warn("failed to ensure vector schema, retrying...", "attempt", i+1, "max_attempts", attempts, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
