package ai

import (
	"fmt"
	"strings"

	"github.com/marwaneigou/RECRUTAI/internal/normalize"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// Prompt size bounds. The candidate summary goes into every scoring call,
// so free-text fields are truncated and skill lists capped to keep token
// usage predictable.
const (
	maxPromptSkills  = 5
	maxFreeTextChars = 500
)

const defaultMatchSystemPrompt = `You are an expert technical recruiter evaluating how well a candidate fits a job posting.
Score each dimension between 0.0 and 1.0. Be precise and consistent: identical inputs must yield identical scores.
Base skill matching strictly on the listed skills. Respond only with the requested JSON structure.`

const matchUserPromptTemplate = `Evaluate the match between this candidate and job posting.

CANDIDATE:
%s

JOB:
%s

Return overallScore, skillsMatch, experienceMatch, educationMatch (each 0.0-1.0), matchedSkills, missingSkills, a short reasoning, and up to three recommendations for the candidate.`

// buildMatchPrompts returns the system and user prompts for a scoring call.
func buildMatchPrompts(profile types.CandidateProfile, job types.JobPosting) (string, string) {
	return defaultMatchSystemPrompt,
		fmt.Sprintf(matchUserPromptTemplate, candidateSummary(profile), jobSummary(job))
}

// candidateSummary renders a compact textual view of the profile.
func candidateSummary(profile types.CandidateProfile) string {
	var b strings.Builder

	skills := profile.Skills
	if len(skills) > maxPromptSkills {
		skills = skills[:maxPromptSkills]
	}
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(normalize.TitleSkills(skills), ", "))
	fmt.Fprintf(&b, "Experience: %.1f years\n", profile.ExperienceYears)

	if len(profile.RoleHistory) > 0 {
		fmt.Fprintf(&b, "Recent roles: %s\n", strings.Join(profile.RoleHistory, "; "))
	}
	if profile.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", profile.Location)
	}
	if len(profile.Education) > 0 {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(profile.Education, "; "))
	}
	if profile.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", truncate(profile.Summary, maxFreeTextChars))
	}

	return b.String()
}

// jobSummary renders a compact textual view of the posting.
func jobSummary(job types.JobPosting) string {
	var b strings.Builder

	if job.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", job.Title)
	}
	fmt.Fprintf(&b, "Required skills: %s\n", strings.Join(normalize.TitleSkills(job.RequiredSkills), ", "))
	if job.ExperienceLevel != "" {
		fmt.Fprintf(&b, "Experience level: %s\n", job.ExperienceLevel)
	}
	if job.Location != "" {
		fmt.Fprintf(&b, "Location: %s (remote allowed: %t)\n", job.Location, job.RemoteAllowed)
	}

	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
