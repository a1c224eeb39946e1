package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marwaneigou/RECRUTAI/internal/config"
	recrutaiErrors "github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/matching"
	"github.com/marwaneigou/RECRUTAI/internal/observability"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider:   "gemini",
			Model:      "gemini-2.0-flash",
			Timeout:    time.Second,
			MaxRetries: 1,
		},
		Match: config.MatchConfig{
			DefaultLimit: 10,
			FallbackOnly: true,
		},
		App: config.AppConfig{
			LogLevel:         "error",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json"},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, apiKeys []string) *Server {
	t.Helper()

	logger, err := recrutaiErrors.New("error")
	if err != nil {
		t.Fatalf("New logger: %v", err)
	}

	return NewServer(cfg, ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		APIKeys:        apiKeys,
		MaxRequestSize: 1 << 20,
	}, logger)
}

func newTestObservability(t *testing.T, cfg *config.Config) *observability.ObservabilityManager {
	t.Helper()

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, cfg)
	if err != nil {
		t.Fatalf("NewObservabilityManager: %v", err)
	}
	return om
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func candidateDoc() map[string]any {
	return map[string]any{
		"candidateId":    "cand-1",
		"skills":         []string{"Go", "Docker", "PostgreSQL"},
		"experience":     4,
		"location":       "Berlin, Germany",
		"expectedSalary": 70000,
	}
}

func jobDoc() map[string]any {
	return map[string]any{
		"jobId":           "job-1",
		"title":           "Backend Engineer",
		"requiredSkills":  []string{"Go", "Kubernetes"},
		"experienceLevel": "mid",
		"location":        "Berlin",
		"salaryMin":       60000,
		"salaryMax":       90000,
	}
}

func TestMatchHandlerMissingData(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing candidate", map[string]any{"jobData": jobDoc()}},
		{"missing job", map[string]any{"candidateProfile": candidateDoc()}},
		{"empty body", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, mux, "/api/match/cv-to-job", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Error != recrutaiErrors.ErrCodeMissingData {
				t.Errorf("error code = %q, want %q", resp.Error, recrutaiErrors.ErrCodeMissingData)
			}
		})
	}
}

func TestMatchHandlerWrongContentType(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	req := httptest.NewRequest(http.MethodPost, "/api/match/cv-to-job", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != recrutaiErrors.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", resp.Error, recrutaiErrors.ErrCodeInvalidRequest)
	}
}

func TestMatchHandlerFallbackScore(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	rec := postJSON(t, mux, "/api/match/cv-to-job", map[string]any{
		"candidateProfile": candidateDoc(),
		"jobData":          jobDoc(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result types.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if result.Confidence != types.ConfidenceFallback {
		t.Errorf("aiConfidence = %v, want %v", result.Confidence, types.ConfidenceFallback)
	}
	if result.OverallScore < 0 || result.OverallScore > 1 {
		t.Errorf("overallScore = %v, want [0,1]", result.OverallScore)
	}
	// 70k expected within the 60k-90k range
	if result.SalaryMatch != 1.0 {
		t.Errorf("salaryMatch = %v, want 1.0", result.SalaryMatch)
	}
	if result.Reasoning == "" {
		t.Error("reasoning should be populated")
	}
}

func TestMatchHandlerIncludeReasonsFalse(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	rec := postJSON(t, mux, "/api/match/cv-to-job", map[string]any{
		"candidateProfile": candidateDoc(),
		"jobData":          jobDoc(),
		"includeReasons":   false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var result types.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Reasoning != "" {
		t.Errorf("reasoning = %q, want empty", result.Reasoning)
	}
	if len(result.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want empty", result.Recommendations)
	}
}

func TestJobToCandidatesRanking(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	strong := candidateDoc()
	strong["candidateId"] = "strong"
	strong["skills"] = []string{"Go", "Kubernetes"}

	weak := candidateDoc()
	weak["candidateId"] = "weak"
	weak["skills"] = []string{"PHP"}

	middling := candidateDoc()
	middling["candidateId"] = "middling"
	middling["skills"] = []string{"Go"}

	rec := postJSON(t, mux, "/api/match/job-to-candidates", map[string]any{
		"jobData":    jobDoc(),
		"candidates": []map[string]any{weak, strong, middling},
		"limit":      2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Matches []matching.RankedCandidate `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(resp.Matches))
	}
	if resp.Matches[0].CandidateID != "strong" {
		t.Errorf("top candidate = %q, want %q", resp.Matches[0].CandidateID, "strong")
	}
	if resp.Matches[0].MatchScore < resp.Matches[1].MatchScore {
		t.Errorf("matches not sorted: %d < %d", resp.Matches[0].MatchScore, resp.Matches[1].MatchScore)
	}
}

func TestCandidateToJobsValidation(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	rec := postJSON(t, mux, "/api/match/candidate-to-jobs", map[string]any{
		"candidateProfile": candidateDoc(),
		"jobs":             []map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCandidateToJobsRanking(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	goJob := jobDoc()
	goJob["jobId"] = "go-job"

	phpJob := jobDoc()
	phpJob["jobId"] = "php-job"
	phpJob["requiredSkills"] = []string{"PHP", "Laravel"}

	rec := postJSON(t, mux, "/api/match/candidate-to-jobs", map[string]any{
		"candidateProfile": candidateDoc(),
		"jobs":             []map[string]any{phpJob, goJob},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Matches []matching.RankedJob `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(resp.Matches))
	}
	if resp.Matches[0].JobID != "go-job" {
		t.Errorf("top job = %q, want %q", resp.Matches[0].JobID, "go-job")
	}
	// Salary is only evaluated on the single-pair endpoint
	if resp.Matches[0].SalaryMatch != 0 {
		t.Errorf("salaryMatch = %v, want omitted", resp.Matches[0].SalaryMatch)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, testConfig(), []string{"secret-key-12345"})
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	body := map[string]any{
		"candidateProfile": candidateDoc(),
		"jobData":          jobDoc(),
	}
	payload, _ := json.Marshal(body)

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/match/cv-to-job", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/match/cv-to-job", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid key via header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/match/cv-to-job", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "secret-key-12345")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("valid key via bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/match/cv-to-job", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer secret-key-12345")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

// brokenDelegate simulates a model whose responses never sanitize into a
// usable result.
type brokenDelegate struct{}

func (brokenDelegate) ScoreMatch(ctx context.Context, profile types.CandidateProfile, job types.JobPosting) (types.MatchResult, *types.TokenUsage, error) {
	return types.MatchResult{}, nil, recrutaiErrors.NewAIError(recrutaiErrors.ErrCodeAIParseFailed, "Model response is not valid JSON", nil)
}

func TestMalformedDelegateResolvesThroughFallback(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	s.aggregator = matching.NewAggregator(brokenDelegate{}, matching.NewFallbackScorer(s.Logger), time.Second, s.Logger)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	rec := postJSON(t, mux, "/api/match/cv-to-job", map[string]any{
		"candidateProfile": candidateDoc(),
		"jobData":          jobDoc(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result types.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Confidence != types.ConfidenceFallback {
		t.Errorf("aiConfidence = %v, want fallback %v", result.Confidence, types.ConfidenceFallback)
	}
}

func TestHealthHandlerFallbackOnly(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	mux := s.setupRoutes(newTestObservability(t, s.AppConfig))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
	if resp["service"] != "recrutai-match" {
		t.Errorf("service = %v, want recrutai-match", resp["service"])
	}
}

func TestStatsHandler(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  5,
		ByIP:           true,
	}

	logger, err := recrutaiErrors.New("error")
	if err != nil {
		t.Fatalf("New logger: %v", err)
	}
	s := NewServer(cfg, ServerConfig{
		Host:      "127.0.0.1",
		Port:      "0",
		Version:   "test",
		RateLimit: &cfg.Server.RateLimit,
	}, logger)
	defer s.RateLimiter.Close()

	mux := s.setupRoutes(newTestObservability(t, cfg))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["rate_limiting"]; !ok {
		t.Error("stats response missing rate_limiting")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  1,
		ByIP:           true,
	}

	logger, err := recrutaiErrors.New("error")
	if err != nil {
		t.Fatalf("New logger: %v", err)
	}
	s := NewServer(cfg, ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
		RateLimit:      &cfg.Server.RateLimit,
	}, logger)
	defer s.RateLimiter.Close()

	mux := s.setupRoutes(newTestObservability(t, cfg))

	body := map[string]any{
		"candidateProfile": candidateDoc(),
		"jobData":          jobDoc(),
	}

	first := postJSON(t, mux, "/api/match/cv-to-job", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
	}

	second := postJSON(t, mux, "/api/match/cv-to-job", body)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}
