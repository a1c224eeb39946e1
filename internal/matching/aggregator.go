package matching

import (
	"context"
	"time"

	"github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// Delegate is an external scoring oracle, typically a language-model call.
// A non-nil error means the delegate produced nothing usable and the caller
// must fall back; a returned MatchResult is only meaningful when err is nil.
type Delegate interface {
	ScoreMatch(ctx context.Context, profile types.CandidateProfile, job types.JobPosting) (types.MatchResult, *types.TokenUsage, error)
}

// Aggregator resolves every scoring request to a well-formed MatchResult.
// It tries the delegate first within a timeout; any delegate failure,
// including cancellation and malformed responses, resolves through the
// deterministic fallback scorer. Aggregate never returns an error.
type Aggregator struct {
	delegate Delegate
	fallback *FallbackScorer
	timeout  time.Duration
	logger   *errors.Logger
}

// Options controls per-request aggregation behavior.
type Options struct {
	// IncludeSalary layers salary compatibility into the result. Only
	// the single CV-to-job variant evaluates salary.
	IncludeSalary bool
}

// NewAggregator builds an aggregator. delegate may be nil, in which case
// every request resolves through the fallback scorer directly.
func NewAggregator(delegate Delegate, fallback *FallbackScorer, timeout time.Duration, logger *errors.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Aggregator{
		delegate: delegate,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// Aggregate scores a candidate against a job. On delegate success the
// model's skills/experience/education scores are kept but location (and
// salary, when requested) are always recomputed deterministically; the
// model is not trusted with data it never sees in full.
func (a *Aggregator) Aggregate(ctx context.Context, profile types.CandidateProfile, job types.JobPosting, opts Options) (types.MatchResult, *types.TokenUsage) {
	if a.delegate == nil {
		return a.resolveFallback(profile, job, opts), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, usage, err := a.delegate.ScoreMatch(callCtx, profile, job)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("model scoring failed, using fallback",
				"error", err.Error(),
				"candidate_id", profile.ID,
				"job_id", job.ID)
		}
		return a.resolveFallback(profile, job, opts), usage
	}

	result.LocationMatch = LocationScore(profile.Location, job.Location, job.RemoteAllowed)
	if opts.IncludeSalary {
		result.SalaryMatch = SalaryScore(profile.ExpectedSalary, job)
	}
	result.Confidence = types.ConfidenceModel
	return result, usage
}

func (a *Aggregator) resolveFallback(profile types.CandidateProfile, job types.JobPosting, opts Options) types.MatchResult {
	result := a.fallback.Score(profile, job)
	if opts.IncludeSalary && result.Confidence != types.ConfidenceMinimal {
		result.SalaryMatch = SalaryScore(profile.ExpectedSalary, job)
	}
	return result
}
