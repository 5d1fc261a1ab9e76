// Package logger decorates slog output with request-scoped attributes.
package logger

import (
	"context"
	"log/slog"

	"github.com/faiqfarooq/Codebase-RAG/internal/middleware"
)

// ContextHandler wraps a slog.Handler and stamps every record carrying a
// request context with its correlation_id, so ingestion and chat log lines
// can be grouped per request.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := middleware.GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
