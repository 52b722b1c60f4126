// Package handlers implements the HTTP endpoints of the analyzer API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/rs/zerolog"
)

// uploadField is the multipart field carrying the statement.
const uploadField = "file"

// Analyzer is the subset of *analyzer.Analyzer the handlers use.
type Analyzer interface {
	AnalyzeBytes(ctx context.Context, name string, data []byte, opts analyzer.Options) (*analyzer.Result, error)
	Lookup(runID string) (*analyzer.Result, error)
	Session() analyzer.SessionState
}

// AnalysesHandler handles analysis endpoints.
type AnalysesHandler struct {
	analyzer  Analyzer
	publisher jobs.Publisher
	maxBytes  int64
	log       zerolog.Logger
}

// NewAnalysesHandler creates a new analyses handler. maxBytes bounds the
// upload size read from the request.
func NewAnalysesHandler(a Analyzer, publisher jobs.Publisher, maxBytes int64, log zerolog.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		analyzer:  a,
		publisher: publisher,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// Analyze handles POST /api/analyses with a multipart "file" upload and an
// optional "ai_insights" form value. The analysis runs synchronously.
func (h *AnalysesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope; the analyzer applies the exact limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	opts := analyzer.Options{AIInsights: parseBool(r.FormValue("ai_insights"))}
	result, err := h.analyzer.AnalyzeBytes(r.Context(), header.Filename, data, opts)
	if err != nil {
		var inputErr *analyzer.InputError
		if errors.As(err, &inputErr) {
			middleware.WriteError(w, http.StatusBadRequest, inputErr.Reason)
			return
		}
		h.log.Error().Err(err).Msg("Analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	middleware.WriteJSON(w, status, result)
}

// EnqueueAnalysis handles POST /api/analyses/jobs
func (h *AnalysesHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI     string `json:"gcs_uri"`
		AIInsights bool   `json:"ai_insights"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, _, err := gcsuploader.ParseURI(req.GCSURI, false); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must be a gs://bucket/object URI")
		return
	}

	job := &jobs.AnalyzeStatementJob{
		Source:     req.GCSURI,
		AIInsights: req.AIInsights,
	}
	if err := h.publisher.PublishAnalyzeStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	// Workers own the job once it is published; only JobID is stable.
	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": req.GCSURI,
		"status":  string(jobs.JobStatusPending),
	})
}

// GetAnalysis handles GET /api/analyses/{run_id}
func (h *AnalysesHandler) GetAnalysis(w http.ResponseWriter, r *http.Request, runID string) {
	result, err := h.analyzer.Lookup(runID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Analysis not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Session handles GET /api/session
func (h *AnalysesHandler) Session(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.analyzer.Session())
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	vocabulary []domain.VocabularyEntry
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(vocabulary []domain.VocabularyEntry) *CategoriesHandler {
	return &CategoriesHandler{vocabulary: vocabulary}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.vocabulary,
		"count":      len(h.vocabulary),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
