package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/marwaneigou/RECRUTAI/internal/config"
	"github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// ScoreProvider is the model boundary for match scoring. Implementations
// are black boxes with a success-or-failure contract: any error means the
// caller must score deterministically instead.
type ScoreProvider interface {
	ScoreMatch(ctx context.Context, profile types.CandidateProfile, job types.JobPosting) (types.MatchResult, *types.TokenUsage, error)
	GetModelInfo(ctx context.Context, timeout time.Duration) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// Service owns the configured score provider.
type Service struct {
	Provider ScoreProvider
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates a scoring service for the configured provider.
func NewService(cfg *config.OperationAIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI scoring service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries)

	var provider ScoreProvider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// GetModelInfo returns model availability information for health checks.
func (s *Service) GetModelInfo(ctx context.Context, timeout time.Duration) *ModelInfo {
	return s.Provider.GetModelInfo(ctx, timeout)
}
