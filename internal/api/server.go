// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/analyze"
	"github.com/RedWaffle007/sic-data-software/internal/enrich"
	"github.com/RedWaffle007/sic-data-software/internal/jobs"
	"github.com/RedWaffle007/sic-data-software/internal/pipeline"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/internal/store"
)

// PipelineRunner builds datasets from extraction requests.
type PipelineRunner interface {
	Execute(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Enricher runs registry enrichment.
type Enricher interface {
	Run(ctx context.Context, p enrich.Params) (*enrich.Result, error)
}

// DirectoryEnricher runs directory enrichment.
type DirectoryEnricher interface {
	Run(ctx context.Context, p enrich.Params) (*enrich.V2Result, error)
}

// Server holds the HTTP layer's dependencies.
type Server struct {
	Orchestrator PipelineRunner
	Enricher     Enricher
	Directory    DirectoryEnricher
	Jobs         *jobs.Store
	Datasets     store.Store

	// Artifact directories by stage.
	ExtractDir  string
	ResolveDir  string
	EnrichedDir string
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/pipeline", func(r chi.Router) {
		r.Post("/run", s.handlePipelineRun)
		r.Post("/run-sync", s.handlePipelineRunSync)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleListJobs)
		r.Get("/{id}", s.handleGetJob)
	})

	r.Route("/artifacts", func(r chi.Router) {
		r.Get("/", s.handleListArtifacts)
		r.Get("/{key}/analysis", s.handleAnalyzeArtifact)
		r.Get("/{key}/download", s.handleDownloadArtifact)
	})

	r.Post("/analyze/upload", s.handleAnalyzeUpload)

	r.Route("/enrich", func(r chi.Router) {
		r.Post("/", s.handleEnrich)
		r.Post("/v2", s.handleEnrichV2)
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/import", s.handleImportDataset)
		r.Get("/", s.handleListDatasets)
		r.Get("/{id}", s.handleGetDataset)
		r.Delete("/{id}", s.handleDeleteDataset)
		r.Get("/{id}/companies", s.handleSearchCompanies)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	report, err := analyze.CSV(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case resilience.IsNotFound(err):
		status = http.StatusNotFound
	case resilience.IsValidation(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return resilience.NewValidation("invalid request body: %v", err)
	}
	return nil
}
