package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marwaneigou/RECRUTAI/internal/normalize"
	"github.com/marwaneigou/RECRUTAI/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the default registry used by the CLI output handler.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchResult", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResult", &MatchMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.MatchResult:
		return "MatchResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// MatchTextFormatter renders a match result as plain text
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MATCH RESULT ===\n\n")
	output.WriteString(fmt.Sprintf("Overall score:    %s\n", percent(result.OverallScore)))
	output.WriteString(fmt.Sprintf("Skills match:     %s\n", percent(result.SkillsMatch)))
	output.WriteString(fmt.Sprintf("Experience match: %s\n", percent(result.ExperienceMatch)))
	if result.LocationMatch > 0 {
		output.WriteString(fmt.Sprintf("Location match:   %s\n", percent(result.LocationMatch)))
	}
	if result.SalaryMatch > 0 {
		output.WriteString(fmt.Sprintf("Salary match:     %s\n", percent(result.SalaryMatch)))
	}
	if result.EducationMatch > 0 {
		output.WriteString(fmt.Sprintf("Education match:  %s\n", percent(result.EducationMatch)))
	}
	output.WriteString(fmt.Sprintf("Confidence:       %.1f\n", result.Confidence))

	if len(result.MatchedSkills) > 0 {
		output.WriteString(fmt.Sprintf("\nMatched skills: %s\n", skillList(result.MatchedSkills)))
	}
	if len(result.MissingSkills) > 0 {
		output.WriteString(fmt.Sprintf("Missing skills: %s\n", skillList(result.MissingSkills)))
	}

	if result.Reasoning != "" {
		output.WriteString("\n=== REASONING ===\n")
		output.WriteString(result.Reasoning)
		output.WriteString("\n")
	}

	if len(result.Recommendations) > 0 {
		output.WriteString("\n=== RECOMMENDATIONS ===\n")
		for i, rec := range result.Recommendations {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
		}
	}

	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchResult"
}

// MatchMarkdownFormatter renders a match result as markdown
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Match Result\n\n")
	output.WriteString("| Dimension | Score |\n")
	output.WriteString("|-----------|-------|\n")
	output.WriteString(fmt.Sprintf("| Overall | %s |\n", percent(result.OverallScore)))
	output.WriteString(fmt.Sprintf("| Skills | %s |\n", percent(result.SkillsMatch)))
	output.WriteString(fmt.Sprintf("| Experience | %s |\n", percent(result.ExperienceMatch)))
	if result.LocationMatch > 0 {
		output.WriteString(fmt.Sprintf("| Location | %s |\n", percent(result.LocationMatch)))
	}
	if result.SalaryMatch > 0 {
		output.WriteString(fmt.Sprintf("| Salary | %s |\n", percent(result.SalaryMatch)))
	}
	if result.EducationMatch > 0 {
		output.WriteString(fmt.Sprintf("| Education | %s |\n", percent(result.EducationMatch)))
	}
	output.WriteString(fmt.Sprintf("\nConfidence: **%.1f**\n", result.Confidence))

	if len(result.MatchedSkills) > 0 {
		output.WriteString("\n## Matched Skills\n\n")
		for _, skill := range result.MatchedSkills {
			output.WriteString(fmt.Sprintf("- %s\n", normalize.TitleSkill(skill)))
		}
	}
	if len(result.MissingSkills) > 0 {
		output.WriteString("\n## Missing Skills\n\n")
		for _, skill := range result.MissingSkills {
			output.WriteString(fmt.Sprintf("- %s\n", normalize.TitleSkill(skill)))
		}
	}

	if result.Reasoning != "" {
		output.WriteString("\n## Reasoning\n\n")
		output.WriteString(result.Reasoning)
		output.WriteString("\n")
	}

	if len(result.Recommendations) > 0 {
		output.WriteString("\n## Recommendations\n\n")
		for _, rec := range result.Recommendations {
			output.WriteString(fmt.Sprintf("- %s\n", rec))
		}
	}

	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResult"
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

func skillList(skills []string) string {
	return strings.Join(normalize.TitleSkills(skills), ", ")
}
