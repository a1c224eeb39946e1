package server

import (
	"context"
	"encoding/json"
	"net/http"

	recrutaiErrors "github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/matching"
	"github.com/marwaneigou/RECRUTAI/internal/normalize"
	"github.com/marwaneigou/RECRUTAI/internal/observability"
	"github.com/marwaneigou/RECRUTAI/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// createMatchHandler scores one candidate against one job. Salary
// compatibility is only evaluated on this variant; the list endpoints
// skip it.
func (s *Server) createMatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("recrutai.api")
		ctx, span := tracer.Start(ctx, "api.match_cv_to_job")
		defer span.End()

		var req MatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, recrutaiErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		if !s.validateMatchPair(w, span, req.CandidateProfile, req.JobData) {
			return
		}

		profile := normalize.Candidate(*req.CandidateProfile)
		job := normalize.Job(*req.JobData)

		span.SetAttributes(
			attribute.Int("request.candidate_skills", len(profile.Skills)),
			attribute.Int("request.job_skills", len(job.RequiredSkills)),
			attribute.String("operation", "cv_to_job"),
		)

		result, _ := s.scorePair(ctx, "cv_to_job", profile, job, matching.Options{IncludeSalary: true}, om)

		if req.IncludeReasons != nil && !*req.IncludeReasons {
			result.Reasoning = ""
			result.Recommendations = nil
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Float64("match.overall_score", result.OverallScore),
		)

		writeJSONResponse(w, span, result)
	}
}

// createJobToCandidatesHandler ranks a candidate pool against one job.
func (s *Server) createJobToCandidatesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("recrutai.api")
		ctx, span := tracer.Start(ctx, "api.match_job_to_candidates")
		defer span.End()

		var req JobToCandidatesRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, recrutaiErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		if req.JobData == nil {
			writeMissingDataResponse(w, span, "jobData field is required")
			return
		}
		if len(req.Candidates) == 0 {
			writeMissingDataResponse(w, span, "candidates field is required and must not be empty")
			return
		}

		job := normalize.Job(*req.JobData)
		limit := s.resolveLimit(req.Limit)

		span.SetAttributes(
			attribute.Int("request.candidates", len(req.Candidates)),
			attribute.Int("request.limit", limit),
			attribute.String("operation", "job_to_candidates"),
		)

		entries := make([]matching.RankedCandidate, 0, len(req.Candidates))
		for _, doc := range req.Candidates {
			profile := normalize.Candidate(doc)
			result, _ := s.scorePair(ctx, "job_to_candidates", profile, job, matching.Options{}, om)
			entries = append(entries, matching.RankedCandidate{
				CandidateID: profile.ID,
				MatchScore:  matching.Percentage(result.OverallScore),
				MatchResult: result,
			})
		}

		ranked := matching.RankCandidates(entries, limit)

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.matches", len(ranked)),
		)

		writeJSONResponse(w, span, map[string]any{"matches": ranked})
	}
}

// createCandidateToJobsHandler ranks a set of jobs against one candidate.
func (s *Server) createCandidateToJobsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("recrutai.api")
		ctx, span := tracer.Start(ctx, "api.match_candidate_to_jobs")
		defer span.End()

		var req CandidateToJobsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, recrutaiErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		if req.CandidateProfile == nil {
			writeMissingDataResponse(w, span, "candidateProfile field is required")
			return
		}
		if len(req.Jobs) == 0 {
			writeMissingDataResponse(w, span, "jobs field is required and must not be empty")
			return
		}

		profile := normalize.Candidate(*req.CandidateProfile)
		limit := s.resolveLimit(req.Limit)

		span.SetAttributes(
			attribute.Int("request.jobs", len(req.Jobs)),
			attribute.Int("request.limit", limit),
			attribute.String("operation", "candidate_to_jobs"),
		)

		entries := make([]matching.RankedJob, 0, len(req.Jobs))
		for _, doc := range req.Jobs {
			job := normalize.Job(doc)
			result, _ := s.scorePair(ctx, "candidate_to_jobs", profile, job, matching.Options{}, om)
			entries = append(entries, matching.RankedJob{
				JobID:       job.ID,
				Title:       job.Title,
				MatchScore:  matching.Percentage(result.OverallScore),
				MatchResult: result,
			})
		}

		ranked := matching.RankJobs(entries, limit)

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.matches", len(ranked)),
		)

		writeJSONResponse(w, span, map[string]any{"matches": ranked})
	}
}

// scorePair runs one candidate/job pair through the aggregator with
// observability instrumentation. Aggregation never fails; the recorded
// fallback flag reflects whether the model result was used.
func (s *Server) scorePair(ctx context.Context, operation string, profile types.CandidateProfile, job types.JobPosting, opts matching.Options, om *observability.ObservabilityManager) (types.MatchResult, *types.TokenUsage) {
	var result types.MatchResult
	var usage *types.TokenUsage

	metrics := om.GetMetrics()
	_ = metrics.TrackScoring(ctx, operation, func(ctx context.Context) *observability.ScoringResult {
		result, usage = s.aggregator.Aggregate(ctx, profile, job, opts)
		return &observability.ScoringResult{
			TokenUsage: usage,
			Fallback:   result.Confidence != types.ConfidenceModel,
			Score:      result.OverallScore,
		}
	}, om)

	return result, usage
}

func (s *Server) validateMatchPair(w http.ResponseWriter, span oteltrace.Span, candidate *types.CandidateDocument, job *types.JobDocument) bool {
	if candidate == nil {
		writeMissingDataResponse(w, span, "candidateProfile field is required")
		return false
	}
	if job == nil {
		writeMissingDataResponse(w, span, "jobData field is required")
		return false
	}
	return true
}

// resolveLimit applies the configured default when the request does not
// specify a positive limit.
func (s *Server) resolveLimit(limit *int) int {
	if limit != nil && *limit > 0 {
		return *limit
	}
	if s.AppConfig != nil && s.AppConfig.Match.DefaultLimit > 0 {
		return s.AppConfig.Match.DefaultLimit
	}
	return matching.DefaultRankLimit
}

func writeJSONResponse(w http.ResponseWriter, span oteltrace.Span, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeMissingDataResponse(w http.ResponseWriter, span oteltrace.Span, message string) {
	span.SetAttributes(attribute.String("error.type", "validation"))
	writeErrorResponse(w, recrutaiErrors.ErrCodeMissingData, message, http.StatusBadRequest)
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordRateLimitHit(r.Context(), om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
