package api

import "net/http"

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStats returns aggregate queue counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Error("reading queue stats", "error", err)
		writeInternalError(w, "failed to read queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleForceSync triggers an immediate sync pass. If a pass is already in
// flight this returns zero counts; the in-flight pass carries on.
func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	result := s.engine.ForceSyncNow(r.Context())
	writeJSON(w, http.StatusOK, result)
}
