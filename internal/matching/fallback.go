// Package matching implements match scoring between candidate profiles and
// job postings. The deterministic scorer in this file is the authority of
// last resort: it runs whenever the model-backed scorer is unavailable,
// times out, or returns something unusable, and it never fails.
package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/normalize"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

const (
	skillsWeight     = 0.6
	experienceWeight = 0.4

	// Applied to the overall score when candidate and job locations are
	// known and incompatible.
	locationPenalty = 0.9

	// Score assigned when the job lists no required skills.
	noRequirementsSkillScore = 0.7
)

// FallbackScorer produces deterministic match results from profile and
// posting data alone. Score is a pure function of its inputs.
type FallbackScorer struct {
	logger *errors.Logger
}

func NewFallbackScorer(logger *errors.Logger) *FallbackScorer {
	return &FallbackScorer{logger: logger}
}

// Score computes a deterministic match result. It never panics: an
// unexpected failure mid-computation degrades to a minimal safe result
// rather than propagating to the caller.
func (s *FallbackScorer) Score(profile types.CandidateProfile, job types.JobPosting) (result types.MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Warn("fallback scoring recovered from panic",
					"panic", fmt.Sprintf("%v", r),
					"candidate_id", profile.ID,
					"job_id", job.ID)
			}
			result = minimalSafeResult()
		}
	}()

	matched, missing := partitionSkills(profile.Skills, job.RequiredSkills)

	skillsMatch := noRequirementsSkillScore
	if len(job.RequiredSkills) > 0 {
		skillsMatch = float64(len(matched)) / float64(len(job.RequiredSkills))
	}

	experienceMatch := ExperienceScore(profile.ExperienceYears, job.ExperienceLevel)
	locationMatch := LocationScore(profile.Location, job.Location, job.RemoteAllowed)

	overall := skillsMatch*skillsWeight + experienceMatch*experienceWeight
	if locationMatch < 0.5 {
		overall *= locationPenalty
	}

	// Cluster-avoidance correction: nudge scores away from the bands
	// where many results would otherwise bunch, so rankings stay
	// discriminating.
	if overall > 0.75 && skillsMatch < 0.8 {
		overall = math.Max(0.65, overall-0.1)
	}
	if overall < 0.4 && skillsMatch > 0.6 {
		overall = math.Min(0.6, overall+0.15)
	}

	return types.MatchResult{
		OverallScore:    overall,
		SkillsMatch:     skillsMatch,
		ExperienceMatch: experienceMatch,
		LocationMatch:   locationMatch,
		EducationMatch:  0.6,
		MatchedSkills:   normalize.TitleSkills(matched),
		MissingSkills:   normalize.TitleSkills(missing),
		Reasoning:       buildReasoning(skillsMatch, experienceMatch, locationMatch, overall),
		Recommendations: buildRecommendations(missing, experienceMatch),
		Confidence:      types.ConfidenceFallback,
	}
}

// partitionSkills splits the job's required skills into those the candidate
// has and those they lack. Both inputs are already normalized, so plain
// set membership suffices. The two outputs partition jobSkills exactly.
func partitionSkills(candidateSkills, jobSkills []string) (matched, missing []string) {
	have := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		have[s] = struct{}{}
	}

	matched = []string{}
	missing = []string{}
	for _, s := range jobSkills {
		if _, ok := have[s]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return matched, missing
}

// ExperienceScore bands candidate years against the job's experience-level
// label.
func ExperienceScore(years float64, level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "entry", "junior":
		if years >= 0 {
			return 1.0
		}
		return 0.5
	case "mid", "middle":
		if years >= 2 {
			return 1.0
		}
		return math.Max(0.3, years/3)
	case "senior":
		if years >= 5 {
			return 1.0
		}
		// Proportional below the threshold so partial seniority stays
		// rank-discriminating down to zero years.
		return years / 6
	default:
		return 0.6
	}
}

// LocationScore rates location compatibility. Remote jobs always score 1.0;
// otherwise a case-insensitive substring match in either direction counts
// as compatible, known-incompatible locations score 0.3, and missing data
// on either side scores a neutral 0.5.
func LocationScore(candidateLocation, jobLocation string, remoteAllowed bool) float64 {
	if remoteAllowed {
		return 1.0
	}

	cand := strings.ToLower(strings.TrimSpace(candidateLocation))
	job := strings.ToLower(strings.TrimSpace(jobLocation))
	if cand == "" || job == "" {
		return 0.5
	}
	if strings.Contains(cand, job) || strings.Contains(job, cand) {
		return 1.0
	}
	return 0.3
}

// SalaryScore rates the candidate's salary expectation against the job's
// range. Missing data on either side is non-blocking and scores 1.0.
func SalaryScore(expected *float64, job types.JobPosting) float64 {
	if expected == nil || !job.HasSalaryRange() {
		return 1.0
	}
	e := *expected
	if e < *job.SalaryMin {
		return 0.9
	}
	if e <= *job.SalaryMax {
		return 1.0
	}
	return math.Max(0.1, 1.0-(e-*job.SalaryMax)/(*job.SalaryMax))
}

func buildReasoning(skillsMatch, experienceMatch, locationMatch, overall float64) string {
	var skills string
	switch {
	case skillsMatch > 0.7:
		skills = fmt.Sprintf("Strong skill match (%d%%)", pct(skillsMatch))
	case skillsMatch > 0.4:
		skills = fmt.Sprintf("Moderate skill match (%d%%)", pct(skillsMatch))
	default:
		skills = fmt.Sprintf("Limited skill match (%d%%)", pct(skillsMatch))
	}

	var experience string
	switch {
	case experienceMatch > 0.8:
		experience = "excellent experience fit"
	case experienceMatch > 0.5:
		experience = "good experience fit"
	default:
		experience = "experience gap exists"
	}

	var b strings.Builder
	b.WriteString("Fallback analysis: ")
	b.WriteString(skills)
	b.WriteString(", ")
	b.WriteString(experience)
	if locationMatch == 1.0 {
		b.WriteString(", location is compatible")
	}
	fmt.Fprintf(&b, ". Overall compatibility: %d%%", pct(overall))
	return b.String()
}

func buildRecommendations(missing []string, experienceMatch float64) []string {
	var recs []string
	if len(missing) > 0 {
		top := missing
		if len(top) > 3 {
			top = top[:3]
		}
		recs = append(recs, "Consider developing skills in: "+strings.Join(normalize.TitleSkills(top), ", "))
	}
	if experienceMatch < 0.5 {
		recs = append(recs, "Gaining more relevant experience would strengthen this application")
	}
	if len(recs) == 0 {
		recs = append(recs, "Great match! Consider applying.")
	}
	return recs
}

func minimalSafeResult() types.MatchResult {
	return types.MatchResult{
		OverallScore:    0.5,
		SkillsMatch:     0.5,
		ExperienceMatch: 0.5,
		LocationMatch:   0.5,
		SalaryMatch:     0.5,
		MatchedSkills:   []string{},
		MissingSkills:   []string{},
		Reasoning:       "Basic fallback scoring due to analysis error",
		Recommendations: []string{"Review the position requirements manually"},
		Confidence:      types.ConfidenceMinimal,
	}
}

func pct(v float64) int {
	return int(math.Round(v * 100))
}
