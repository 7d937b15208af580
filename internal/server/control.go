// Package server exposes the worker and the synchronous upload path over a
// small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/ingest"
	"alliance-observatory/internal/middleware"
	"alliance-observatory/internal/worker"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const maxRequestBytes = 1 << 20

type Enqueuer interface {
	Enqueue(job worker.Job) (string, error)
	State() worker.State
}

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, uploads []ingest.Upload) (ingest.BatchResult, error)
}

type ControlServer struct {
	worker    Enqueuer
	batches   BatchProcessor
	uploadDir string
	logger    zerolog.Logger
}

func NewControlServer(w *worker.Worker, o *ingest.Orchestrator, cfg *config.Config, logger zerolog.Logger) *ControlServer {
	return newControlServer(w, o, cfg.UploadDir, logger)
}

func newControlServer(w Enqueuer, b BatchProcessor, uploadDir string, logger zerolog.Logger) *ControlServer {
	return &ControlServer{worker: w, batches: b, uploadDir: uploadDir, logger: logger}
}

func (s *ControlServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/batches", s.enqueueBatch)
	mux.HandleFunc("GET /v1/worker", s.workerState)
	mux.HandleFunc("POST /v1/uploads", s.processUploads)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return middleware.RequestID(s.logger)(middleware.Recover(c.Handler(mux)))
}

type batchRequest struct {
	ManifestPath string `json:"manifest_path"`
	Limit        int    `json:"limit"`
}

func (s *ControlServer) enqueueBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ManifestPath == "" {
		writeError(w, http.StatusBadRequest, errors.New("manifest_path is required"))
		return
	}
	path, err := s.resolve(req.ManifestPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.worker.Enqueue(worker.Job{ManifestPath: path, Limit: req.Limit})
	switch {
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopping):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *ControlServer) workerState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.worker.State())
}

type uploadFile struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Note string `json:"note"`
}

type uploadRequest struct {
	Files []uploadFile `json:"files"`
}

// processUploads runs the batch inside the request, one file at a time.
func (s *ControlServer) processUploads(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("files must not be empty"))
		return
	}

	uploads := make([]ingest.Upload, 0, len(req.Files))
	for _, f := range req.Files {
		path, err := s.resolve(f.Path)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		up := ingest.Upload{Path: path, Note: f.Note}
		if f.Type != "" {
			t, ok := domain.ParseScreenshotType(f.Type)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Errorf("unknown screenshot type %q", f.Type))
				return
			}
			up.Type = t
		}
		uploads = append(uploads, up)
	}

	batch, err := s.batches.ProcessBatch(r.Context(), uploads)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("upload batch aborted")
		writeJSON(w, http.StatusServiceUnavailable, batch)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// resolve keeps request paths inside the upload directory.
func (s *ControlServer) resolve(p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative to the upload directory", p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q leaves the upload directory", p)
	}
	return filepath.Join(s.uploadDir, clean), nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
