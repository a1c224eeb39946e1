package formatters

import (
	"slices"
	"strings"
	"testing"

	"github.com/marwaneigou/RECRUTAI/internal/types"
)

func sampleResult() types.MatchResult {
	return types.MatchResult{
		OverallScore:    0.7,
		SkillsMatch:     0.5,
		ExperienceMatch: 1.0,
		LocationMatch:   1.0,
		SalaryMatch:     0.9,
		EducationMatch:  0.6,
		MatchedSkills:   []string{"go"},
		MissingSkills:   []string{"kubernetes"},
		Reasoning:       "Fallback analysis: Moderate skill alignment (50% of required skills).",
		Recommendations: []string{"Consider developing skills in: Kubernetes"},
		Confidence:      0.6,
	}
}

func TestRegistryJSONFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "json")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(out, `"overallScore": 0.7`) {
		t.Errorf("json output missing overallScore: %s", out)
	}
	if !strings.Contains(out, `"aiConfidence": 0.6`) {
		t.Errorf("json output missing aiConfidence: %s", out)
	}
}

func TestRegistryTextFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "text")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	for _, want := range []string{
		"=== MATCH RESULT ===",
		"Overall score:    70%",
		"Skills match:     50%",
		"Missing skills: Kubernetes",
		"=== RECOMMENDATIONS ===",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRegistryMarkdownFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "markdown")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	for _, want := range []string{
		"# Match Result",
		"| Overall | 70% |",
		"## Missing Skills",
		"- Kubernetes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleResult(), "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRegistrySupportedFormats(t *testing.T) {
	formats := GlobalRegistry.GetSupportedFormats()
	for _, want := range []string{"json", "text", "markdown"} {
		if !slices.Contains(formats, want) {
			t.Errorf("GetSupportedFormats() = %v, missing %q", formats, want)
		}
	}
}

func TestRegistryGenericFallback(t *testing.T) {
	// Non-MatchResult values fall back to the generic JSON formatter.
	out, err := GlobalRegistry.Format(map[string]int{"a": 1}, "json")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(out, `"a": 1`) {
		t.Errorf("unexpected output: %s", out)
	}
}
