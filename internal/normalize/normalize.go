// Package normalize coerces the heterogeneous candidate and job payloads
// accepted by the matching endpoints into the canonical shapes consumed by
// the scorers. Normalization never fails: unknown or malformed fields
// resolve to defaults so that scoring always has well-typed input.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// maxRoleHistory bounds how many role descriptions are carried downstream
// (they end up in the model prompt, which is token-budgeted).
const maxRoleHistory = 2

// commonSkills is scanned against free-text requirements when a job posting
// carries no explicit skill list.
var commonSkills = []string{
	"JavaScript", "React", "Node.js", "Python", "Java", "TypeScript", "HTML", "CSS",
	"Angular", "Vue.js", "PHP", "C#", "C++", "Go", "Ruby", "Swift", "Kotlin",
	"SQL", "MongoDB", "PostgreSQL", "MySQL", "Redis", "Docker", "Kubernetes",
	"AWS", "Azure", "GCP", "Git", "Jenkins", "Terraform", "Linux",
}

// Candidate converts a raw candidate document into a canonical profile.
func Candidate(doc types.CandidateDocument) types.CandidateProfile {
	profile := types.CandidateProfile{
		ID:             doc.CandidateID,
		Location:       strings.TrimSpace(doc.Location),
		ExpectedSalary: doc.ExpectedSalary,
		Summary:        strings.TrimSpace(doc.ProfessionalSummary),
	}

	// Skills may arrive under either key depending on the producer.
	raw := doc.Skills
	if len(raw) == 0 {
		raw = doc.TechnicalSkills
	}
	profile.Skills = Skills(raw)

	profile.ExperienceYears, profile.RoleHistory = experience(doc.Experience)

	if len(doc.Education) > 0 {
		profile.Education = make([]string, 0, len(doc.Education))
		for _, e := range doc.Education {
			if e = strings.TrimSpace(e); e != "" {
				profile.Education = append(profile.Education, e)
			}
		}
	}

	return profile
}

// Job converts a raw job document into a canonical posting. When the job
// carries no explicit skill list, skills are recovered from the free-text
// requirements via a common-skill dictionary scan.
func Job(doc types.JobDocument) types.JobPosting {
	job := types.JobPosting{
		ID:              doc.JobID,
		Title:           strings.TrimSpace(doc.Title),
		ExperienceLevel: strings.ToLower(strings.TrimSpace(doc.ExperienceLevel)),
		Location:        strings.TrimSpace(doc.Location),
		SalaryMin:       doc.SalaryMin,
		SalaryMax:       doc.SalaryMax,
		RemoteAllowed:   doc.RemoteAllowed,
	}

	job.RequiredSkills = Skills(doc.RequiredSkills)
	if len(job.RequiredSkills) == 0 && doc.Requirements != "" {
		job.RequiredSkills = skillsFromText(doc.Requirements)
	}

	return job
}

// Skills lower-cases, trims and deduplicates a skill list, preserving the
// original order of first occurrence. Display casing is reconstructed on
// output via TitleSkill.
func Skills(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// TitleSkill restores display casing for a normalized skill: first letter
// upper-cased, remainder untouched ("react" -> "React", "aws" -> "Aws").
func TitleSkill(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// TitleSkills maps TitleSkill over a list, keeping order.
func TitleSkills(skills []string) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = TitleSkill(s)
	}
	return out
}

// experience resolves the three accepted experience shapes to a year count
// plus an optional role history:
//   - number: used as-is
//   - string: first digit run is read as years ("5+ years" -> 5)
//   - list:   kept as role history, truncated; no year information
//
// Anything unparseable resolves to zero years.
func experience(raw json.RawMessage) (float64, []string) {
	if len(raw) == 0 {
		return 0, nil
	}

	var years float64
	if err := json.Unmarshal(raw, &years); err == nil {
		if years < 0 {
			years = 0
		}
		return years, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return YearsFromText(text), nil
	}

	var entries []string
	if err := json.Unmarshal(raw, &entries); err == nil {
		history := make([]string, 0, maxRoleHistory)
		for _, e := range entries {
			if e = strings.TrimSpace(e); e == "" {
				continue
			}
			history = append(history, e)
			if len(history) == maxRoleHistory {
				break
			}
		}
		return 0, history
	}

	return 0, nil
}

// YearsFromText extracts the first run of digits from a free-text
// experience description and reads it as a year count.
func YearsFromText(text string) float64 {
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(text[start:i])
			if err != nil {
				return 0
			}
			return float64(n)
		}
	}
	if start >= 0 {
		if n, err := strconv.Atoi(text[start:]); err == nil {
			return float64(n)
		}
	}
	return 0
}

// skillsFromText scans free-text requirements for well-known skill names.
func skillsFromText(requirements string) []string {
	lower := strings.ToLower(requirements)
	var found []string
	for _, skill := range commonSkills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			found = append(found, skill)
		}
	}
	return Skills(found)
}
