package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"sync":        s.hub.Stats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleBuildStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"builds":      s.orchestrator.Stats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
