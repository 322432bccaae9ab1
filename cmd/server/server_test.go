package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/logger"
	"github.com/himanishpuri/BreakFinder/pkg/models"
)

const testEpisodeID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

type fakeService struct {
	episodes   []models.Episode
	analyzeErr error
	storeErr   error
	uploads    []string
	metas      []*models.EpisodeMeta
}

func (f *fakeService) Run(context.Context) (*models.Analysis, error) {
	return nil, errors.New("not used")
}

func (f *fakeService) FetchLatest(context.Context) (*models.EpisodeMeta, string, error) {
	return nil, "", errors.New("not used")
}

func (f *fakeService) Analyze(ctx context.Context, path string, meta *models.EpisodeMeta) (*models.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, string(data))
	f.metas = append(f.metas, meta)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &models.Analysis{
		Episode:           *meta,
		EpisodeID:         testEpisodeID,
		Starts:            []float64{12.5},
		Ends:              []float64{72.5},
		Intervals:         []models.Interval{{Start: 12.5, End: 72.5}},
		CommercialSeconds: 60,
		LengthSeconds:     1800,
		SampleRate:        44100,
	}, nil
}

func (f *fakeService) GetEpisode(id string) (*models.Episode, []models.Commercial, error) {
	if f.storeErr != nil {
		return nil, nil, f.storeErr
	}
	for _, ep := range f.episodes {
		if ep.ID == id {
			return &ep, []models.Commercial{{ID: 1, EpisodeID: id, Start: 12.5, End: 72.5, Length: 60}}, nil
		}
	}
	return nil, nil, breakfinder.ErrEpisodeNotFound
}

func (f *fakeService) ListEpisodes() ([]models.Episode, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return f.episodes, nil
}

func (f *fakeService) DeleteEpisode(id string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	for i, ep := range f.episodes {
		if ep.ID == id {
			f.episodes = append(f.episodes[:i], f.episodes[i+1:]...)
			return nil
		}
	}
	return breakfinder.ErrEpisodeNotFound
}

func (f *fakeService) CountCommercials() (int64, error) {
	if f.storeErr != nil {
		return 0, f.storeErr
	}
	return int64(len(f.episodes)), nil
}

func (f *fakeService) Close() error { return nil }

func setupTestServer(t *testing.T, origins ...string) (*fakeService, http.Handler) {
	t.Helper()
	svc, h, _ := setupTestServerWithDir(t, origins...)
	return svc, h
}

func setupTestServerWithDir(t *testing.T, origins ...string) (*fakeService, http.Handler, string) {
	t.Helper()

	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	svc := &fakeService{
		episodes: []models.Episode{{
			ID:                testEpisodeID,
			Title:             "Episode 7",
			URL:               "https://cdn.example.com/7.mp3",
			Number:            7,
			LengthSeconds:     1800,
			CommercialSeconds: 60,
			SampleRate:        44100,
			CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
	tempDir := t.TempDir()
	server := NewServer(svc, &ServerConfig{
		Port:           0,
		DBPath:         "test.sqlite3",
		TempDir:        tempDir,
		Threshold:      10,
		MaxUploadBytes: 1 << 20,
		AllowedOrigins: origins,
	})
	return svc, server.setupRoutes(), tempDir
}

func doRequest(t *testing.T, h http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to decode %s response: %v\n%s", req.URL.Path, err, rec.Body.String())
		}
	}
	return rec
}

func uploadRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("audio", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// TestHealthAndMetrics tests the health endpoints
func TestHealthAndMetrics(t *testing.T) {
	_, h := setupTestServer(t)

	var health map[string]string
	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/health", nil), &health)
	if rec.Code != http.StatusOK || health["status"] != "healthy" {
		t.Errorf("Unexpected health response %d: %v", rec.Code, health)
	}

	var metrics MetricsResponse
	doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/health/metrics", nil), &metrics)
	if metrics.EpisodeCount != 1 || metrics.CommercialCount != 1 || metrics.Threshold != 10 {
		t.Errorf("Unexpected metrics: %+v", metrics)
	}

	rec = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
}

// TestEpisodeEndpoints tests listing, fetching and deleting episodes
func TestEpisodeEndpoints(t *testing.T) {
	svc, h := setupTestServer(t)

	var list ListEpisodesResponse
	doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/episodes", nil), &list)
	if list.Count != 1 || list.Episodes[0].Title != "Episode 7" {
		t.Fatalf("Unexpected list: %+v", list)
	}

	var detail EpisodeDetailResponse
	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/episodes/"+testEpisodeID, nil), &detail)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if detail.Episode.Number != 7 || len(detail.Commercials) != 1 || detail.Commercials[0].Length != 60 {
		t.Errorf("Unexpected detail: %+v", detail)
	}

	var errResp ErrorResponse
	rec = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/episodes/not-a-uuid", nil), &errResp)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed ID, got %d", rec.Code)
	}

	var deleted DeleteEpisodeResponse
	rec = doRequest(t, h, httptest.NewRequest(http.MethodDelete, "/api/episodes/"+testEpisodeID, nil), &deleted)
	if rec.Code != http.StatusOK || deleted.ID != testEpisodeID {
		t.Fatalf("Unexpected delete response %d: %+v", rec.Code, deleted)
	}
	if len(svc.episodes) != 0 {
		t.Errorf("Expected episode to be removed, %d left", len(svc.episodes))
	}

	rec = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/episodes/"+testEpisodeID, nil), &errResp)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}

	rec = doRequest(t, h, httptest.NewRequest(http.MethodPost, "/api/episodes", nil), &errResp)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

// TestStorageDisabled tests the status returned when the service has no database
func TestStorageDisabled(t *testing.T) {
	svc, h := setupTestServer(t)
	svc.storeErr = breakfinder.ErrStorageDisabled

	var errResp ErrorResponse
	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/episodes", nil), &errResp)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}

	var metrics MetricsResponse
	rec = doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/health/metrics", nil), &metrics)
	if rec.Code != http.StatusOK || metrics.EpisodeCount != 0 || metrics.CommercialCount != 0 {
		t.Errorf("Expected metrics without storage, got %d %+v", rec.Code, metrics)
	}
}

// TestAnalyzeUpload tests POST /api/analyze
func TestAnalyzeUpload(t *testing.T) {
	svc, h, tempDir := setupTestServerWithDir(t)

	var resp AnalyzeResponse
	req := uploadRequest(t, map[string]string{"title": "Uploaded", "number": "8"}, "../../etc/episode.MP3", "fake audio")
	rec := doRequest(t, h, req, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Analysis == nil || resp.Analysis.CommercialSeconds != 60 {
		t.Fatalf("Unexpected analysis: %+v", resp.Analysis)
	}
	if len(svc.uploads) != 1 || svc.uploads[0] != "fake audio" {
		t.Errorf("Expected upload contents to reach the service, got %v", svc.uploads)
	}
	meta := svc.metas[0]
	if meta.Title != "Uploaded" || meta.Number != 8 || meta.URL != "upload://episode.MP3" {
		t.Errorf("Unexpected meta: %+v", meta)
	}
	if !strings.HasPrefix(meta.GUID, "upload-") {
		t.Errorf("Expected a content-derived GUID, got %q", meta.GUID)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected temp upload to be removed, found %d files", len(entries))
	}
}

// TestAnalyzeUploadKeys tests that uploads sharing a file name are keyed by their content
func TestAnalyzeUploadKeys(t *testing.T) {
	svc, h := setupTestServer(t)

	for _, content := range []string{"first episode", "second episode", "first episode"} {
		rec := doRequest(t, h, uploadRequest(t, nil, "episode.mp3", content), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}
	rec := doRequest(t, h, uploadRequest(t, map[string]string{"guid": "feed-42"}, "episode.mp3", "first episode"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(svc.metas) != 4 {
		t.Fatalf("Expected 4 analyses, got %d", len(svc.metas))
	}
	first, second, again := svc.metas[0].GUID, svc.metas[1].GUID, svc.metas[2].GUID
	if first == second {
		t.Errorf("Expected different content to get different GUIDs, both %q", first)
	}
	if first != again {
		t.Errorf("Expected identical content to share a GUID, got %q and %q", first, again)
	}
	if svc.metas[3].GUID != "feed-42" {
		t.Errorf("Expected explicit GUID to be kept, got %q", svc.metas[3].GUID)
	}
}

// TestAnalyzeUploadErrors tests validation and failure responses of POST /api/analyze
func TestAnalyzeUploadErrors(t *testing.T) {
	svc, h := setupTestServer(t)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"missing file", uploadRequest(t, map[string]string{"title": "x"}, "", ""), http.StatusBadRequest},
		{"bad number", uploadRequest(t, map[string]string{"number": "seven"}, "a.mp3", "x"), http.StatusBadRequest},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("{}")), http.StatusBadRequest},
		{"wrong method", httptest.NewRequest(http.MethodGet, "/api/analyze", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			rec := doRequest(t, h, tt.req, &errResp)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %+v", tt.want, rec.Code, errResp)
			}
		})
	}

	svc.analyzeErr = errors.New("decoding episode: unsupported format")
	var errResp ErrorResponse
	rec := doRequest(t, h, uploadRequest(t, nil, "broken.ogg", "junk"), &errResp)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

// TestCORS tests preflight handling and origin filtering
func TestCORS(t *testing.T) {
	_, h := setupTestServer(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/episodes", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := doRequest(t, h, req, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Unexpected allowed origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = doRequest(t, h, req, nil)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for unknown origin, got %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := getClientIP(req); got != "192.0.2.1" {
		t.Errorf("Expected RemoteAddr host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := getClientIP(req); got != "203.0.113.9" {
		t.Errorf("Expected first forwarded IP, got %q", got)
	}
}
