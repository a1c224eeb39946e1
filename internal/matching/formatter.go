package matching

import (
	"math"
	"sort"

	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// DefaultRankLimit bounds list responses when the caller does not ask for
// a specific count.
const DefaultRankLimit = 10

// RankedCandidate pairs a candidate with their match against a single job,
// for the job-to-candidates listing.
type RankedCandidate struct {
	CandidateID string `json:"candidateId"`
	MatchScore  int    `json:"matchScore"`
	types.MatchResult
}

// RankedJob pairs a job with its match against a single candidate, for the
// candidate-to-jobs listing.
type RankedJob struct {
	JobID      string `json:"jobId"`
	Title      string `json:"title,omitempty"`
	MatchScore int    `json:"matchScore"`
	types.MatchResult
}

// RankCandidates sorts scored candidates by overall score descending and
// truncates to limit. The sort is stable, so ties keep input order.
func RankCandidates(entries []RankedCandidate, limit int) []RankedCandidate {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OverallScore > entries[j].OverallScore
	})
	return entries[:clampLimit(limit, len(entries))]
}

// RankJobs sorts scored jobs by overall score descending and truncates to
// limit. The sort is stable, so ties keep input order.
func RankJobs(entries []RankedJob, limit int) []RankedJob {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OverallScore > entries[j].OverallScore
	})
	return entries[:clampLimit(limit, len(entries))]
}

// Percentage converts a [0,1] score to the 0-100 integer form used in
// list responses.
func Percentage(score float64) int {
	return int(math.Round(score * 100))
}

func clampLimit(limit, n int) int {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	if limit > n {
		return n
	}
	return limit
}
