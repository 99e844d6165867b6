package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/stepdeck/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	job, err := s.orchestrator.Submit(pipeline.TriggerAPI)
	if err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusTooManyRequests
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/rebuild/%s", snap.ID),
	})
}

func (s *Server) handleRebuildStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
