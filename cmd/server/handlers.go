package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/cache"
	"github.com/himanishpuri/BreakFinder/pkg/logger"
	"github.com/himanishpuri/BreakFinder/pkg/utils"
)

// analyzeTimeout bounds decoding and correlating one uploaded episode
const analyzeTimeout = 10 * time.Minute

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service breakfinder.Service
	config  *ServerConfig
	log     breakfinder.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	Threshold      float64
	MaxUploadBytes int64
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service breakfinder.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().Named("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondStoreError maps service storage errors onto HTTP statuses
func (s *Server) respondStoreError(w http.ResponseWriter, err error, id, action string) {
	switch {
	case errors.Is(err, breakfinder.ErrEpisodeNotFound):
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Episode %s not found", id))
	case errors.Is(err, breakfinder.ErrStorageDisabled):
		s.respondError(w, http.StatusServiceUnavailable, "Episode storage is disabled")
	default:
		s.log.Errorf("Failed to %s: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", action))
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "BreakFinder API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"episodes":      "GET /api/episodes",
			"getEpisode":    "GET /api/episodes/{id}",
			"deleteEpisode": "DELETE /api/episodes/{id}",
			"analyze":       "POST /api/analyze",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.service.ListEpisodes()
	if err != nil && !errors.Is(err, breakfinder.ErrStorageDisabled) {
		s.log.Errorf("Failed to get episode count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	commercials, err := s.service.CountCommercials()
	if err != nil && !errors.Is(err, breakfinder.ErrStorageDisabled) {
		s.log.Errorf("Failed to get commercial count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:          "healthy",
		DatabasePath:    s.config.DBPath,
		EpisodeCount:    len(episodes),
		CommercialCount: commercials,
		Threshold:       s.config.Threshold,
	})
}

// handleListEpisodes handles GET /api/episodes
func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.service.ListEpisodes()
	if err != nil {
		s.respondStoreError(w, err, "", "retrieve episodes")
		return
	}

	dtos := make([]EpisodeDTO, len(episodes))
	for i, ep := range episodes {
		dtos[i] = toEpisodeDTO(ep)
	}

	s.respondJSON(w, http.StatusOK, ListEpisodesResponse{
		Episodes: dtos,
		Count:    len(dtos),
	})
}

// handleGetEpisode handles GET /api/episodes/{id}
func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request, id string) {
	ep, commercials, err := s.service.GetEpisode(id)
	if err != nil {
		s.respondStoreError(w, err, id, "retrieve episode")
		return
	}

	dtos := make([]CommercialDTO, len(commercials))
	for i, c := range commercials {
		dtos[i] = CommercialDTO{Start: c.Start, End: c.End, Length: c.Length}
	}

	s.respondJSON(w, http.StatusOK, EpisodeDetailResponse{
		Episode:     toEpisodeDTO(*ep),
		Commercials: dtos,
	})
}

// handleDeleteEpisode handles DELETE /api/episodes/{id}
func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteEpisode(id); err != nil {
		s.respondStoreError(w, err, id, "delete episode")
		return
	}

	s.log.Infof("Deleted episode %s", id)
	s.respondJSON(w, http.StatusOK, DeleteEpisodeResponse{
		Message: "Episode deleted successfully",
		ID:      id,
	})
}

// handleAnalyzeFile handles POST /api/analyze (multipart file upload)
func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", s.config.MaxUploadBytes))
			return
		}
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseAnalyzeRequest(r.FormValue("title"), r.FormValue("guid"), r.FormValue("number"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	// Uploads get a generated name; only the extension is kept so ffmpeg can sniff the format.
	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if err := utils.MakeDir(s.config.TempDir); err != nil {
		s.log.Errorf("Failed to create temp dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	tempFile := filepath.Join(s.config.TempDir, "upload_"+uuid.NewString()+ext)
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	if err := out.Close(); err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	sum, err := cache.HashFile(tempFile)
	if err != nil {
		s.log.Errorf("Failed to hash upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	s.log.Infof("Analyzing uploaded file: %s", name)
	analysis, err := s.service.Analyze(ctx, tempFile, req.Meta(name, sum))
	if err != nil {
		s.log.Errorf("Failed to analyze %s: %v", name, err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to analyze episode: %v", err))
		return
	}

	s.log.Infof("Analysis complete: %d breaks, %.2fs of commercials", len(analysis.Intervals), analysis.CommercialSeconds)
	s.respondJSON(w, http.StatusOK, AnalyzeResponse{
		Message:  "Episode analyzed successfully",
		Analysis: analysis,
	})
}

// handleEpisodes routes requests to /api/episodes
func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEpisodes(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleEpisode routes requests to /api/episodes/{id}
func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/episodes/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Episode ID required")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetEpisode(w, r, id)
	case http.MethodDelete:
		s.handleDeleteEpisode(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAnalyze routes requests to /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyzeFile(w, r)
}
