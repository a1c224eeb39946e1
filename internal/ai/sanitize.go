package ai

import (
	"encoding/json"

	"github.com/marwaneigou/RECRUTAI/internal/errors"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// neutralScore fills individual numeric fields the model left out. A
// response missing all of its required scores is rejected instead.
const neutralScore = 0.5

const missingReasoningText = "No reasoning provided by the model"

// modelScorePayload mirrors the structured response schema. Pointer fields
// distinguish absent values from explicit zeros.
type modelScorePayload struct {
	OverallScore    *float64 `json:"overallScore"`
	SkillsMatch     *float64 `json:"skillsMatch"`
	ExperienceMatch *float64 `json:"experienceMatch"`
	EducationMatch  *float64 `json:"educationMatch"`
	MatchedSkills   []string `json:"matchedSkills"`
	MissingSkills   []string `json:"missingSkills"`
	Reasoning       string   `json:"reasoning"`
	Recommendations []string `json:"recommendations"`
}

// parseModelResponse decodes and sanitizes a raw model response. It fails
// when the payload is not JSON or carries none of the required scores;
// those cases must resolve through the fallback scorer rather than produce
// a fabricated low score.
func parseModelResponse(raw string) (types.MatchResult, error) {
	var payload modelScorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.MatchResult{}, errors.NewAIError(errors.ErrCodeAIParseFailed,
			"Failed to parse model scoring response", err)
	}

	if payload.OverallScore == nil && payload.SkillsMatch == nil && payload.ExperienceMatch == nil {
		return types.MatchResult{}, errors.NewAIError(errors.ErrCodeAIParseFailed,
			"Model scoring response carries no scores", nil)
	}

	result := types.MatchResult{
		OverallScore:    clampScore(payload.OverallScore),
		SkillsMatch:     clampScore(payload.SkillsMatch),
		ExperienceMatch: clampScore(payload.ExperienceMatch),
		EducationMatch:  clampScore(payload.EducationMatch),
		MatchedSkills:   payload.MatchedSkills,
		MissingSkills:   payload.MissingSkills,
		Reasoning:       payload.Reasoning,
		Recommendations: payload.Recommendations,
	}

	if result.MatchedSkills == nil {
		result.MatchedSkills = []string{}
	}
	if result.MissingSkills == nil {
		result.MissingSkills = []string{}
	}
	if result.Reasoning == "" {
		result.Reasoning = missingReasoningText
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}

	return result, nil
}

// clampScore bounds a score to [0,1], substituting a neutral value when
// the model omitted the field.
func clampScore(v *float64) float64 {
	if v == nil {
		return neutralScore
	}
	if *v < 0 {
		return 0
	}
	if *v > 1 {
		return 1
	}
	return *v
}
