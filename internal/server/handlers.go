package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	defaultLimit     = 100
	defaultHoursBack = 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.QuickCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLimit)

	positions, err := s.store.PositionsByLimit(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch positions")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch positions")
		return
	}

	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handlePositionsByTrain(w http.ResponseWriter, r *http.Request) {
	train := chi.URLParam(r, "train")
	hours := queryInt(r, "hours", defaultHoursBack)

	positions, err := s.store.RecentPositions(train, hours)
	if err != nil {
		s.log.Error().Err(err).Str("train", train).Msg("Failed to fetch positions")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch positions")
		return
	}

	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLimit)

	announcements, err := s.store.AnnouncementsByLimit(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch announcements")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch announcements")
		return
	}

	s.writeJSON(w, http.StatusOK, announcements)
}

func (s *Server) handleAnnouncementsByTrain(w http.ResponseWriter, r *http.Request) {
	train := chi.URLParam(r, "train")
	hours := queryInt(r, "hours", defaultHoursBack)

	announcements, err := s.store.RecentAnnouncements(train, hours)
	if err != nil {
		s.log.Error().Err(err).Str("train", train).Msg("Failed to fetch announcements")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch announcements")
		return
	}

	s.writeJSON(w, http.StatusOK, announcements)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch stats")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleSystem reports database size, disk usage of the data directory, and
// the state of both stream connections.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"database_size_bytes": s.db.SizeBytes(),
		"streams": map[string]string{
			"position":     s.positions.State().String(),
			"announcement": s.announcements.State().String(),
		},
	}

	if usage, err := disk.Usage(s.dataDir); err == nil {
		response["disk"] = map[string]interface{}{
			"total_bytes":  usage.Total,
			"free_bytes":   usage.Free,
			"used_percent": usage.UsedPercent,
		}
	} else {
		s.log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
