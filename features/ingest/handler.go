package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/faiqfarooq/Codebase-RAG/internal/vector"
)

type Handler struct {
	service        *Service
	uploadDir      string
	maxUploadBytes int64
}

func NewHandler(service *Service, uploadDir string, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

type ingestResponse struct {
	Message        string `json:"message"`
	FilesProcessed int    `json:"files_processed"`
	ChunksCreated  int    `json:"chunks_created"`
}

// Directory handles POST /ingest.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DirectoryPath string `json:"directory_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.DirectoryPath == "" {
		h.writeError(w, "directory_path is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.IngestDirectory(r.Context(), req.DirectoryPath)
	if err != nil {
		h.writeIngestError(r, w, err)
		return
	}

	h.writeResult(w, res, "Codebase ingested successfully")
}

// Upload handles POST /ingest/upload (multipart ZIP).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		h.writeError(w, "Only ZIP files are supported", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.Error("failed to create upload directory", "error", err, "path", h.uploadDir)
		h.writeError(w, "Failed to save upload", http.StatusInternalServerError)
		return
	}

	// UUID prefix so concurrent uploads of the same archive never collide.
	path := filepath.Join(h.uploadDir, uuid.New().String()+"_"+filepath.Base(header.Filename))
	dst, err := os.Create(path) // #nosec G304 -- uuid-prefixed name under the configured upload dir
	if err != nil {
		slog.Error("failed to create upload file", "error", err)
		h.writeError(w, "Failed to save upload", http.StatusInternalServerError)
		return
	}

	if _, err := dst.ReadFrom(file); err != nil {
		dst.Close()
		os.Remove(path)
		h.writeError(w, "Failed to write upload", http.StatusInternalServerError)
		return
	}
	dst.Close()
	defer os.Remove(path)

	res, err := h.service.IngestArchive(r.Context(), path)
	if err != nil {
		h.writeIngestError(r, w, err)
		return
	}

	h.writeResult(w, res, "Codebase uploaded and ingested successfully")
}

// Repo handles POST /ingest/repo.
func (h *Handler) Repo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoURL string `json:"repo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		h.writeError(w, "repo_url is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.IngestRepo(r.Context(), req.RepoURL)
	if err != nil {
		h.writeIngestError(r, w, err)
		return
	}

	h.writeResult(w, res, "Repository cloned and ingested successfully")
}

func (h *Handler) writeResult(w http.ResponseWriter, res *Result, prefix string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ingestResponse{
		Message:        res.Message(prefix),
		FilesProcessed: res.FilesProcessed,
		ChunksCreated:  res.ChunksCreated,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeIngestError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDirectoryNotFound),
		errors.Is(err, ErrNoSourceFiles),
		errors.Is(err, ErrInvalidRepoURL):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, vector.ErrIndexUnavailable):
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(r.Context(), "ingestion failed", "error", err)
		h.writeError(w, "Error ingesting codebase: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, detail string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
