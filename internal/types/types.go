package types

import "encoding/json"

// CandidateDocument is the raw candidate payload as received from callers.
// Field shapes vary between producers (CV builder, profile service, bulk
// imports), so experience is kept raw and resolved by the normalizer.
type CandidateDocument struct {
	CandidateID         string          `json:"candidateId"`
	Skills              []string        `json:"skills"`
	TechnicalSkills     []string        `json:"technicalSkills"`
	Experience          json.RawMessage `json:"experience"`
	Location            string          `json:"location"`
	ExpectedSalary      *float64        `json:"expectedSalary"`
	Education           []string        `json:"education"`
	ProfessionalSummary string          `json:"professionalSummary"`
}

// JobDocument is the raw job payload as received from callers.
type JobDocument struct {
	JobID           string   `json:"jobId"`
	Title           string   `json:"title"`
	RequiredSkills  []string `json:"requiredSkills"`
	Requirements    string   `json:"requirements"`
	ExperienceLevel string   `json:"experienceLevel"`
	Location        string   `json:"location"`
	SalaryMin       *float64 `json:"salaryMin"`
	SalaryMax       *float64 `json:"salaryMax"`
	RemoteAllowed   bool     `json:"remoteAllowed"`
}

// CandidateProfile is the canonical candidate shape used by the scorers.
// Skills are lower-cased, trimmed and deduplicated; ExperienceYears is
// always resolved to a number. Profiles are read-only inside the scorers.
type CandidateProfile struct {
	ID              string
	Skills          []string
	ExperienceYears float64
	RoleHistory     []string
	Location        string
	ExpectedSalary  *float64
	Education       []string
	Summary         string
}

// JobPosting is the canonical job shape used by the scorers.
type JobPosting struct {
	ID              string
	Title           string
	RequiredSkills  []string
	ExperienceLevel string
	Location        string
	SalaryMin       *float64
	SalaryMax       *float64
	RemoteAllowed   bool
}

// HasSalaryRange reports whether both salary bounds are present. Salary
// compatibility is only evaluated when the job provides a full range.
func (j JobPosting) HasSalaryRange() bool {
	return j.SalaryMin != nil && j.SalaryMax != nil
}

// MatchResult is the canonical scoring outcome. All numeric match fields
// are in [0,1]. MatchedSkills and MissingSkills partition the job's
// required-skill set whenever skills matching was computed. A result is
// built fresh per request and never mutated after being returned.
type MatchResult struct {
	OverallScore    float64  `json:"overallScore"`
	SkillsMatch     float64  `json:"skillsMatch"`
	ExperienceMatch float64  `json:"experienceMatch"`
	LocationMatch   float64  `json:"locationMatch,omitempty"`
	SalaryMatch     float64  `json:"salaryMatch,omitempty"`
	EducationMatch  float64  `json:"educationMatch,omitempty"`
	MatchedSkills   []string `json:"matchedSkills"`
	MissingSkills   []string `json:"missingSkills"`
	Reasoning       string   `json:"reasoning"`
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"aiConfidence"`
}

// Confidence levels attached to MatchResult depending on how it was produced.
const (
	ConfidenceModel    = 1.0 // delegate-verified result
	ConfidenceFallback = 0.6 // deterministic heuristic result
	ConfidenceMinimal  = 0.3 // safe result after an internal scoring error
)

// TokenUsage reports model token consumption for a single scoring call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}
