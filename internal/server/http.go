package server

import (
	"time"

	"github.com/marwaneigou/RECRUTAI/internal/ai"
	"github.com/marwaneigou/RECRUTAI/internal/config"
	recrutaiErrors "github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/matching"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// MatchRequest is the body for the single CV-to-job endpoint. The document
// fields are pointers so a missing field is distinguishable from an empty
// object.
type MatchRequest struct {
	CandidateProfile *types.CandidateDocument `json:"candidateProfile"`
	JobData          *types.JobDocument       `json:"jobData"`
	IncludeReasons   *bool                    `json:"includeReasons"`
}

// JobToCandidatesRequest ranks a pool of candidates against one job.
type JobToCandidatesRequest struct {
	JobData    *types.JobDocument        `json:"jobData"`
	Candidates []types.CandidateDocument `json:"candidates"`
	Limit      *int                      `json:"limit"`
}

// CandidateToJobsRequest ranks a set of jobs against one candidate.
type CandidateToJobsRequest struct {
	CandidateProfile *types.CandidateDocument `json:"candidateProfile"`
	Jobs             []types.JobDocument      `json:"jobs"`
	Limit            *int                     `json:"limit"`
}

// ErrorResponse carries a stable error code plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate hot-reload
	CertReloader *CertReloader

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	// Scoring pipeline, built once at startup
	scoreService *ai.Service
	aggregator   *matching.Aggregator

	// Logger
	Logger *recrutaiErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *recrutaiErrors.Logger) *Server {
	// API keys as a map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewLimiterManager(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
	s.initScoring()
	return s
}

// initScoring builds the scoring pipeline. A missing or unusable model
// delegate is not fatal; the service degrades to deterministic scoring.
func (s *Server) initScoring() {
	fallback := matching.NewFallbackScorer(s.Logger)
	matchCfg := s.AppConfig.GetMatchConfig()

	var delegate matching.Delegate
	if s.AppConfig.ModelScoringEnabled() {
		svc, err := ai.NewService(&matchCfg, s.Logger)
		if err != nil {
			s.Logger.LogError(err, "Model scoring unavailable, using fallback scoring only")
		} else {
			s.scoreService = svc
			delegate = svc.Provider
		}
	} else {
		s.Logger.Info("Model scoring disabled, using fallback scoring only")
	}

	var timeout time.Duration
	if matchCfg.Timeout != nil {
		timeout = *matchCfg.Timeout
	}
	s.aggregator = matching.NewAggregator(delegate, fallback, timeout, s.Logger)
}
