package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/faiqfarooq/Codebase-RAG/internal/llm"
	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		h.writeError(w, "query is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Ask(r.Context(), req.Query, req.Model)
	if err != nil {
		h.writeChatError(r, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeChatError maps the error taxonomy to HTTP statuses. Provider and
// index failures keep their kind visible in the detail string so a caller
// can decide on retry or backoff.
func (h *Handler) writeChatError(r *http.Request, w http.ResponseWriter, err error) {
	var provErr *llm.ProviderError

	switch {
	case errors.Is(err, ErrUnknownModel):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, vector.ErrIndexUnavailable):
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, vector.ErrDimensionMismatch):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &provErr):
		switch provErr.Kind {
		case llm.KindRateLimited:
			h.writeError(w, err.Error(), http.StatusTooManyRequests)
		case llm.KindAuthFailed:
			h.writeError(w, err.Error(), http.StatusBadGateway)
		case llm.KindTimeout:
			h.writeError(w, err.Error(), http.StatusGatewayTimeout)
		default:
			h.writeError(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		slog.ErrorContext(r.Context(), "chat failed", "error", err)
		h.writeError(w, "Error generating response: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, detail string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
