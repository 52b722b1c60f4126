// Package api assembles the HTTP router and middleware chain.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Routes holds the handlers served by the router. Metrics may be nil.
type Routes struct {
	Analyses   *handlers.AnalysesHandler
	Jobs       *handlers.JobsHandler
	Categories *handlers.CategoriesHandler
	Metrics    http.Handler
}

// NewRouter returns the API handler wrapped in the middleware chain.
func NewRouter(routes Routes, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/analyses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			routes.Analyses.Analyze(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analyses/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			routes.Analyses.EnqueueAnalysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analyses/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		runID := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
		if runID == "" || strings.Contains(runID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
			return
		}
		routes.Analyses.GetAnalysis(w, r, runID)
	})

	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			routes.Analyses.Session(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			routes.Categories.ListCategories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			routes.Jobs.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		routes.Jobs.GetJob(w, r, jobID)
	})

	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)
}
