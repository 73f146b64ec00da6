// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/answer"
	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/internal/metadata"
	"github.com/pdiddy/answer-engine/internal/ratelimit"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var answerCmd = &cobra.Command{
	Use:   "answer [query]",
	Short: "Generate a cited answer from retrieval output",
	Long: `Answer runs the full pipeline for one research question: it aggregates
the scored passages in the input file into per-paper records, extracts
verbatim supporting quotes, plans thematic sections, links each quote back
to its exact source span, writes cited section text, and resolves every
citation token.

The input file is the YAML retrieval output (scored passages plus a paper
metadata map) produced by the retrieval service.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

func runAnswer(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	inputPath, _ := cmd.Flags().GetString("input")
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading retrieval output: %w", err)
	}
	var retrieval types.RetrievalOutput
	if err := yaml.Unmarshal(data, &retrieval); err != nil {
		return fmt.Errorf("parsing retrieval output: %w", err)
	}

	genCfg, metaCfg, rlCfg, ansCfg := answerConfigs(cmd)

	limiter := ratelimit.New(rlCfg)
	deps := answer.Deps{
		Generator: genai.NewGateway(genCfg, limiter),
		Metadata:  metadata.NewSemanticScholar(metaCfg, limiter),
	}

	result, err := answer.Run(context.Background(), deps, ansCfg, query, retrieval, os.Stderr)
	if err != nil {
		return err
	}

	if err := writeAnswer(result, ansCfg.OutputDir); err != nil {
		return err
	}

	if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
		archiveDir, _ := cmd.Flags().GetString("archive-dir")
		store, err := archive.Open(types.ArchiveConfig{ArchiveDir: archiveDir})
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(context.Background(), result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "archived answer %d\n", id)
	}

	fmt.Fprintf(os.Stderr, "done: %d sections, cost %.4f\n", len(result.Sections), result.Cost)
	return nil
}

// writeAnswer stores the YAML artifact and a Markdown rendering.
func writeAnswer(a *types.Answer, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	stamp := a.CreatedAt.Format("20060102-150405")
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling answer: %w", err)
	}
	yamlPath := filepath.Join(outputDir, "answer-"+stamp+".yaml")
	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", yamlPath, err)
	}

	mdPath := filepath.Join(outputDir, "answer-"+stamp+".md")
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(a)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mdPath, err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s and %s\n", yamlPath, mdPath)
	return nil
}

// renderMarkdown produces a human-readable view of the answer.
func renderMarkdown(a *types.Answer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", a.Query)
	for _, sec := range a.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Title)
		if sec.TLDR != "" {
			fmt.Fprintf(&b, "*%s*\n\n", sec.TLDR)
		}
		b.WriteString(sec.Text)
		b.WriteString("\n")
		if len(sec.Citations) > 0 {
			b.WriteString("\nSources:\n")
			for _, c := range sec.Citations {
				fmt.Fprintf(&b, "- %s %s (%d)\n", c.ID, c.Paper.Title, c.Paper.Year)
			}
		}
	}
	return b.String()
}

// answerConfigs assembles stage configs from flags and loaded secrets.
func answerConfigs(cmd *cobra.Command) (types.GenerationConfig, types.MetadataConfig, types.RateLimitConfig, types.AnswerConfig) {
	gatewayURL, _ := cmd.Flags().GetString("gateway")
	model, _ := cmd.Flags().GetString("model")
	fallbackModel, _ := cmd.Flags().GetString("fallback-model")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	genKey, _ := cmd.Flags().GetString("api-key")

	genCfg := types.GenerationConfig{
		HTTPConfig:    types.HTTPConfig{Timeout: 3 * time.Minute, UserAgent: "answer-engine/" + version},
		BaseURL:       gatewayURL,
		Model:         model,
		FallbackModel: fallbackModel,
		MaxTokens:     maxTokens,
		APIKey:        secretDefault("generation-api-key", genKey),
	}

	metaCfg := types.MetadataConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 60 * time.Second, UserAgent: "answer-engine/" + version},
		APIKey:     secretDefault("semantic-scholar-api-key", ""),
	}

	rpm, _ := cmd.Flags().GetInt("requests-per-minute")
	tpm, _ := cmd.Flags().GetInt("tokens-per-minute")
	rlCfg := types.RateLimitConfig{RequestsPerMinute: rpm, TokensPerMinute: tpm}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	inlineTags, _ := cmd.Flags().GetBool("inline-tags")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	ansCfg := types.AnswerConfig{
		ContextThreshold: threshold,
		Workers:          workers,
		RunTimeout:       timeout,
		InlineTags:       inlineTags,
		OutputDir:        outputDir,
	}

	return genCfg, metaCfg, rlCfg, ansCfg
}

func init() {
	answerCmd.Flags().String("input", "retrieval.yaml", "retrieval output file (scored passages + metadata)")
	answerCmd.Flags().String("gateway", "http://localhost:8090", "generation gateway base URL")
	answerCmd.Flags().String("model", "", "primary generation model identifier")
	answerCmd.Flags().String("fallback-model", "", "model tried once when the primary fails")
	answerCmd.Flags().Int("max-tokens", 4096, "response token cap per generation call")
	answerCmd.Flags().String("api-key", "", "generation gateway API key (overrides .secrets/)")
	answerCmd.Flags().Float64("threshold", 0.0, "minimum aggregated relevance to keep a paper")
	answerCmd.Flags().Int("workers", 4, "quote-extraction worker pool size")
	answerCmd.Flags().Duration("timeout", 10*time.Minute, "wall-clock budget for the whole run")
	answerCmd.Flags().Bool("inline-tags", false, "wrap resolved citations in machine-readable inline tags")
	answerCmd.Flags().String("output-dir", "output/answers", "directory for answer artifacts")
	answerCmd.Flags().Int("requests-per-minute", 0, "collaborator request budget per minute (0 = unlimited)")
	answerCmd.Flags().Int("tokens-per-minute", 0, "generation token budget per minute (0 = unlimited)")
	answerCmd.Flags().Bool("no-archive", false, "skip archiving the completed answer")
	answerCmd.Flags().String("archive-dir", "archive", "base directory for the answer archive")

	rootCmd.AddCommand(answerCmd)
}
