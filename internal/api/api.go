// Package api serves read-only views of a run's artifacts over HTTP.
// Every request reads the files fresh, so a dashboard can watch a run
// in progress without coordinating with the pipeline.
package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/pipeline"
)

// Server holds the artifact paths the handlers read from.
type Server struct {
	outputPath     string
	checkpointPath string
}

// NewServer creates a server over the given output and checkpoint files.
// Neither file needs to exist yet.
func NewServer(outputPath, checkpointPath string) *Server {
	return &Server{outputPath: outputPath, checkpointPath: checkpointPath}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/cases", s.handleCases)
		r.Get("/cases/{caseID}", s.handleCase)
		r.Get("/status", s.handleStatus)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCases(w http.ResponseWriter, _ *http.Request) {
	cases, err := s.loadCases()
	if err != nil {
		zap.L().Warn("api: read cases", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cannot read case output")
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

func (s *Server) handleCase(w http.ResponseWriter, r *http.Request) {
	// Route params stay percent-encoded when the request path was escaped,
	// and case IDs carry spaces.
	caseID := chi.URLParam(r, "caseID")
	if decoded, err := url.PathUnescape(caseID); err == nil {
		caseID = decoded
	}

	cases, err := s.loadCases()
	if err != nil {
		zap.L().Warn("api: read cases", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cannot read case output")
		return
	}

	for _, c := range cases {
		if c != nil && c.CaseID == caseID {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeError(w, http.StatusNotFound, "case not found")
}

type statusResponse struct {
	CheckpointPresent bool    `json:"checkpoint_present"`
	LastUnitProcessed int     `json:"last_unit_processed"`
	CaseCount         int     `json:"case_count"`
	DuplicateCount    int     `json:"duplicate_count"`
	Timestamp         float64 `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if _, err := os.Stat(s.checkpointPath); os.IsNotExist(err) {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}

	cp, err := pipeline.LoadCheckpoint(s.checkpointPath)
	if err != nil {
		zap.L().Warn("api: read checkpoint", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cannot read checkpoint")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		CheckpointPresent: true,
		LastUnitProcessed: cp.LastUnitProcessed,
		CaseCount:         cp.CaseCount,
		DuplicateCount:    cp.DuplicateCount,
		Timestamp:         cp.Timestamp,
	})
}

// loadCases treats a missing output file as an empty run rather than
// an error; the server may come up before the first unit completes.
func (s *Server) loadCases() ([]*model.ConsolidatedCase, error) {
	if _, err := os.Stat(s.outputPath); os.IsNotExist(err) {
		return []*model.ConsolidatedCase{}, nil
	}
	return pipeline.LoadCases(s.outputPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
