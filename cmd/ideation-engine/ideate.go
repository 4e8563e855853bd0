// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ideation-engine/internal/assemble"
	"github.com/pdiddy/ideation-engine/internal/identify"
	"github.com/pdiddy/ideation-engine/internal/knowledge"
	"github.com/pdiddy/ideation-engine/internal/llm"
	"github.com/pdiddy/ideation-engine/internal/loop"
	"github.com/pdiddy/ideation-engine/internal/pipeline"
	"github.com/pdiddy/ideation-engine/internal/retrieve"
	"github.com/pdiddy/ideation-engine/internal/secrets"
	"github.com/pdiddy/ideation-engine/internal/validate"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

var ideateCmd = &cobra.Command{
	Use:   "ideate [paper-ids...]",
	Short: "Generate and refine research problem proposals for target papers",
	Long: `Ideate runs the full pipeline for each target paper: assemble a context
from the bibliographic graph API and the local knowledge base, generate
a research problem proposal, score it with the reviewer panel, and
refine it until it converges or the round budget runs out.

Target papers come from --papers (a JSONL file of paper ids) or from
positional arguments in graph API form (e.g. CorpusId:215416146).
One result record is appended to the output file per paper.`,
	RunE: runIdeate,
}

func runIdeate(cmd *cobra.Command, args []string) error {
	cfg := ideateConfig(cmd)

	paperIDs, err := ideatePaperIDs(cmd, args)
	if err != nil {
		return err
	}

	client, err := aiClient(cmd, cfg.AI)
	if err != nil {
		return err
	}

	reviewers, err := reviewerConfig(cfg.ReviewersPath)
	if err != nil {
		return err
	}

	assembler := contextAssembler(cfg)

	opts := llm.Options{Temperature: cfg.AI.Temperature, MaxTokens: cfg.AI.MaxTokens}
	controller := &loop.Controller{
		Identifier: &identify.Identifier{
			Client:          client,
			Options:         opts,
			ParseRetryLimit: cfg.Loop.ParseRetryLimit,
		},
		Validator: &validate.Validator{
			Client:     client,
			Options:    opts,
			Config:     reviewers,
			RetryLimit: cfg.Loop.ReviewerRetryLimit,
		},
		Config:      cfg.Loop,
		Definitions: reviewers.Definitions(),
		Progress:    os.Stdout,
	}

	p := &pipeline.Pipeline{
		Assembler:  assembler,
		Controller: controller,
		OutputPath: cfg.OutputPath,
		Progress:   os.Stdout,
	}

	summary, err := p.Run(cmd.Context(), paperIDs)
	if err != nil {
		return err
	}
	if summary.Aborted > 0 {
		return fmt.Errorf("%d of %d run(s) aborted", summary.Aborted, summary.Total())
	}
	return nil
}

// ideatePaperIDs collects target papers from the --papers file and any
// positional arguments, in that order.
func ideatePaperIDs(cmd *cobra.Command, args []string) ([]string, error) {
	var ids []string

	papersPath, _ := cmd.Flags().GetString("papers")
	if papersPath != "" {
		loaded, err := pipeline.LoadPaperIDs(papersPath)
		if err != nil {
			return nil, err
		}
		ids = append(ids, loaded...)
	}
	ids = append(ids, args...)

	if len(ids) == 0 {
		return nil, fmt.Errorf("no target papers: provide --papers or paper id arguments")
	}
	return ids, nil
}

// aiClient builds the LLM client for the configured backend, resolving
// the API key from the flag, the secrets directory, or the environment.
func aiClient(cmd *cobra.Command, cfg types.AIConfig) (llm.Client, error) {
	switch cfg.Backend {
	case "claude":
		key := secrets.Lookup(loadedSecrets, cfg.APIKey, "anthropic-api-key", "ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("claude backend requires an API key: use --api-key, .secrets/anthropic-api-key, or ANTHROPIC_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		return &llm.ClaudeClient{
			APIKey:     key,
			Model:      model,
			MaxRetries: cfg.MaxRetries,
		}, nil
	case "openai":
		key := secrets.Lookup(loadedSecrets, cfg.APIKey, "openai-api-key", "OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai backend requires an API key: use --api-key, .secrets/openai-api-key, or OPENAI_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o"
		}
		return llm.NewOpenAIClient(key, model), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q: use claude or openai", cfg.Backend)
	}
}

func reviewerConfig(path string) (*validate.Config, error) {
	if path == "" {
		return validate.DefaultConfig(), nil
	}
	return validate.LoadConfig(path)
}

// contextAssembler wires the graph API fetcher and, when the knowledge
// base opens, the entity store. A missing or unreadable knowledge base
// degrades to contexts without entities.
func contextAssembler(cfg types.PipelineConfig) *assemble.Assembler {
	assembler := &assemble.Assembler{
		Fetcher: &retrieve.SemanticScholar{
			Client: &http.Client{Timeout: cfg.Retrieval.Timeout},
			Config: cfg.Retrieval,
		},
		MaxReferences: cfg.Retrieval.MaxReferences,
		MaxEntities:   cfg.Knowledge.MaxEntities,
		Progress:      os.Stderr,
	}

	store, err := knowledge.NewStore(cfg.Knowledge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: knowledge base unavailable, contexts will carry no entities: %v\n", err)
		return assembler
	}
	assembler.Store = store
	return assembler
}

func ideateConfig(cmd *cobra.Command) types.PipelineConfig {
	flags := cmd.Flags()

	var cfg types.PipelineConfig
	cfg.Retrieval.APIKey = secrets.Lookup(loadedSecrets, "", "semantic-scholar-api-key", "SEMANTIC_SCHOLAR_API_KEY")
	cfg.Retrieval.MaxReferences, _ = flags.GetInt("max-references")
	cfg.Knowledge.KnowledgeDir, _ = flags.GetString("knowledge-dir")
	cfg.Knowledge.MaxEntities, _ = flags.GetInt("max-entities")
	cfg.AI.Backend, _ = flags.GetString("backend")
	cfg.AI.Model, _ = flags.GetString("model")
	cfg.AI.APIKey, _ = flags.GetString("api-key")
	cfg.AI.Temperature, _ = flags.GetFloat32("temperature")
	cfg.AI.MaxTokens, _ = flags.GetInt("max-tokens")
	cfg.Loop.MaxRounds, _ = flags.GetInt("max-rounds")
	cfg.Loop.SatisfactionThreshold, _ = flags.GetFloat64("threshold")
	policy, _ := flags.GetString("policy")
	cfg.Loop.SatisfactionPolicy = types.SatisfactionPolicy(policy)
	cfg.Loop.HistoryCap, _ = flags.GetInt("history-cap")
	cfg.ReviewersPath, _ = flags.GetString("reviewers")
	cfg.OutputPath, _ = flags.GetString("output")

	cfg.ApplyDefaults()
	return cfg
}

func init() {
	ideateCmd.Flags().String("papers", "", "JSONL file of target paper ids")
	ideateCmd.Flags().String("output", "output/ideas.jsonl", "JSONL file results are appended to")
	ideateCmd.Flags().String("backend", "claude", "LLM backend: claude or openai")
	ideateCmd.Flags().String("model", "", "AI model identifier (default per backend)")
	ideateCmd.Flags().String("api-key", "", "AI API key (overrides secrets and environment)")
	ideateCmd.Flags().Float32("temperature", 0, "sampling temperature for completions")
	ideateCmd.Flags().Int("max-tokens", 0, "completion token limit (0 = default)")
	ideateCmd.Flags().Int("max-rounds", 0, "round budget per paper (0 = default)")
	ideateCmd.Flags().Float64("threshold", 0, "satisfaction threshold on the 1-5 scale (0 = default)")
	ideateCmd.Flags().String("policy", "", "convergence policy: all-metrics or aggregate")
	ideateCmd.Flags().Int("history-cap", 0, "round history retained per run (0 = default)")
	ideateCmd.Flags().Int("max-references", 0, "references attached to each context (0 = default)")
	ideateCmd.Flags().Int("max-entities", 0, "knowledge entities attached to each context (0 = default)")
	ideateCmd.Flags().String("knowledge-dir", "knowledge", "base directory for the entity knowledge base (contains index/)")
	ideateCmd.Flags().String("reviewers", "", "reviewer panel configuration YAML (default: built-in five metrics)")

	rootCmd.AddCommand(ideateCmd)
}
