package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/analyze"
	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/enrich"
	"github.com/RedWaffle007/sic-data-software/internal/export"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/pipeline"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/internal/store"
)

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	job := s.Jobs.Create("pipeline")
	go func() {
		// Detached from the request context so the run survives the
		// client disconnecting.
		ctx := context.Background()
		s.Jobs.Start(job.ID)
		resp, err := s.Orchestrator.Execute(ctx, req)
		if err != nil {
			zap.L().Error("pipeline job failed", zap.String("job_id", job.ID), zap.Error(err))
			s.Jobs.Fail(job.ID, err)
			return
		}
		s.Jobs.Complete(job.ID, resp)
	}()

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handlePipelineRunSync(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.Orchestrator.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// stageDirs maps the stage query parameter onto artifact directories.
func (s *Server) stageDirs(stage string) []string {
	switch stage {
	case "extract":
		return []string{s.ExtractDir}
	case "resolve":
		return []string{s.ResolveDir}
	case "enrich":
		return []string{s.EnrichedDir}
	default:
		return []string{s.ExtractDir, s.ResolveDir, s.EnrichedDir}
	}
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	var all []artifact.Meta
	for _, dir := range s.stageDirs(r.URL.Query().Get("stage")) {
		metas, err := artifact.List(dir)
		if err != nil {
			writeError(w, err)
			return
		}
		all = append(all, metas...)
	}
	if all == nil {
		all = []artifact.Meta{}
	}
	writeJSON(w, http.StatusOK, all)
}

// dirFor locates the directory holding a key, searching extract, resolve and
// enriched outputs in that order.
func (s *Server) dirFor(key string) (string, error) {
	for _, dir := range []string{s.ExtractDir, s.ResolveDir, s.EnrichedDir} {
		if artifact.Exists(dir, key) {
			return dir, nil
		}
	}
	return "", resilience.NewNotFound("artifact", key)
}

func (s *Server) handleAnalyzeArtifact(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	dir, err := s.dirFor(key)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := analyze.Artifact(dir, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}

	dir, err := s.dirFor(key)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key+"."+format))
	if err := export.Artifact(w, dir, key, format); err != nil {
		// Headers may already be out; log rather than double-write.
		zap.L().Error("artifact export failed", zap.String("key", key), zap.Error(err))
	}
}

// enrichRequest selects the source dataset for an enrichment run.
type enrichRequest struct {
	SourceKey    string `json:"source_key"`
	Limit        int    `json:"limit,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.Enricher == nil {
		writeError(w, resilience.NewValidation("registry enrichment is not configured"))
		return
	}
	s.runEnrichJob(w, r, "enrich", func(ctx context.Context, p enrich.Params) (any, error) {
		return s.Enricher.Run(ctx, p)
	})
}

func (s *Server) handleEnrichV2(w http.ResponseWriter, r *http.Request) {
	if s.Directory == nil {
		writeError(w, resilience.NewValidation("directory enrichment is not configured"))
		return
	}
	s.runEnrichJob(w, r, "enrich_v2", func(ctx context.Context, p enrich.Params) (any, error) {
		return s.Directory.Run(ctx, p)
	})
}

func (s *Server) runEnrichJob(w http.ResponseWriter, r *http.Request, kind string, run func(context.Context, enrich.Params) (any, error)) {
	var req enrichRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SourceKey == "" {
		writeError(w, resilience.NewValidation("source_key is required"))
		return
	}
	srcDir, err := s.dirFor(req.SourceKey)
	if err != nil {
		writeError(w, err)
		return
	}

	job := s.Jobs.Create(kind)
	go func() {
		ctx := context.Background()
		s.Jobs.Start(job.ID)
		result, err := run(ctx, enrich.Params{
			SourceDir:    srcDir,
			SourceKey:    req.SourceKey,
			Limit:        req.Limit,
			ForceRefresh: req.ForceRefresh,
			Progress: func(done, total int) {
				s.Jobs.SetProgress(job.ID, done, total)
			},
		})
		if err != nil {
			zap.L().Error("enrichment job failed", zap.String("job_id", job.ID), zap.Error(err))
			s.Jobs.Fail(job.ID, err)
			return
		}
		s.Jobs.Complete(job.ID, result)
	}()

	writeJSON(w, http.StatusAccepted, job)
}

// importRequest names an artifact to load into the dataset store.
type importRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (s *Server) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" || req.Name == "" {
		writeError(w, resilience.NewValidation("key and name are required"))
		return
	}

	ds, err := s.importArtifact(r.Context(), req.Key, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

func (s *Server) importArtifact(ctx context.Context, key, name string) (*store.Dataset, error) {
	dir, err := s.dirFor(key)
	if err != nil {
		return nil, err
	}
	return store.ImportArtifact(ctx, s.Datasets, dir, key, name)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.Datasets.ListDatasets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []store.Dataset{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.Datasets.GetDataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.Datasets.DeleteDataset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SearchFilter{
		Query:  q.Get("query"),
		County: q.Get("county"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	found, err := s.Datasets.SearchCompanies(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if found == nil {
		found = []model.ResolvedRecord{}
	}
	writeJSON(w, http.StatusOK, found)
}
