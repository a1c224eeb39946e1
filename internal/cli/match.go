package cli

import (
	"encoding/json"
	"fmt"

	"github.com/marwaneigou/RECRUTAI/internal/ai"
	"github.com/marwaneigou/RECRUTAI/internal/common"
	"github.com/marwaneigou/RECRUTAI/internal/matching"
	"github.com/marwaneigou/RECRUTAI/internal/normalize"
	"github.com/marwaneigou/RECRUTAI/internal/types"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [candidate-file] [job-file]",
	Short: "Score a candidate against a job posting",
	Long: `Score how well a candidate fits a job posting. The command takes two
arguments: the path to a candidate document and the path to a job document,
both JSON. Scoring uses the configured AI model when available and falls back
to deterministic heuristics otherwise.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if matchConfig.OutputFormat == "" {
			matchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(matchConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runMatch,
}

var matchConfig common.CommandConfig
var matchNoReasons bool

func init() {
	matchCmd.Flags().StringVarP(&matchConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	matchCmd.Flags().StringVar(&matchConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	matchCmd.Flags().BoolVar(&matchNoReasons, "no-reasons", false, "Omit reasoning and recommendations from the output")

	// Add completion for format flag
	_ = matchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	fileProcessor := common.NewFileProcessor(logger)
	contents, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	var candidateDoc types.CandidateDocument
	if err := json.Unmarshal([]byte(contents[0]), &candidateDoc); err != nil {
		return fmt.Errorf("failed to parse candidate document %s: %w", args[0], err)
	}
	var jobDoc types.JobDocument
	if err := json.Unmarshal([]byte(contents[1]), &jobDoc); err != nil {
		return fmt.Errorf("failed to parse job document %s: %w", args[1], err)
	}

	profile := normalize.Candidate(candidateDoc)
	job := normalize.Job(jobDoc)

	logger.Info("Starting match scoring",
		"candidate_skills", len(profile.Skills),
		"job_skills", len(job.RequiredSkills),
		"output_format", matchConfig.OutputFormat)

	var delegate matching.Delegate
	matchAIConfig := cfg.GetMatchConfig()
	if cfg.ModelScoringEnabled() {
		aiService, err := ai.NewService(&matchAIConfig, logger)
		if err != nil {
			return fmt.Errorf("failed to create AI service: %w", err)
		}
		delegate = aiService.Provider
	} else {
		logger.Info("Model scoring disabled, using fallback scoring only")
	}

	var timeout = cfg.AI.Timeout
	if matchAIConfig.Timeout != nil {
		timeout = *matchAIConfig.Timeout
	}

	aggregator := matching.NewAggregator(delegate, matching.NewFallbackScorer(logger), timeout, logger)
	result, tokenUsage := aggregator.Aggregate(cmd.Context(), profile, job, matching.Options{IncludeSalary: true})

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	if matchNoReasons {
		result.Reasoning = ""
		result.Recommendations = nil
	}

	outputHandler := common.NewOutputHandler(logger)
	if err := outputHandler.HandleOutput(result, matchConfig); err != nil {
		return fmt.Errorf("failed to write match result: %w", err)
	}

	logger.Info("Match scoring completed successfully",
		"overall_score", result.OverallScore,
		"confidence", result.Confidence)
	return nil
}
