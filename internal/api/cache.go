package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/platefront/edge-gateway/internal/store"
)

// handleGetCache serves a cached cloud value. An expired or missing entry
// is a plain 404; devices fall back to whatever they hold locally.
func (s *Server) handleGetCache(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	data, err := s.store.GetCache(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			writeNotFound(w, "cache miss")
			return
		}
		s.logger.Error("reading cache", "key", key, "error", err)
		writeInternalError(w, "failed to read cache")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // Best-effort write to response
}

// handleSetCache stores a JSON value under a key. The body is the value
// itself; an optional ?ttl= query parameter overrides the configured
// default TTL (seconds).
func (s *Server) handleSetCache(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		writeBadRequest(w, "body must be valid JSON")
		return
	}

	ttl := s.cacheTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			writeBadRequest(w, "ttl must be a positive integer (seconds)")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	if err := s.store.SetCache(r.Context(), key, body, ttl); err != nil {
		s.logger.Error("writing cache", "key", key, "error", err)
		writeInternalError(w, "failed to write cache")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}
