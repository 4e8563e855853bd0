// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ideation-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetrievalConfig holds settings for the bibliographic graph API client.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is an optional Semantic Scholar API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxReferences caps the number of references attached to a Context
	// (default 10).
	MaxReferences int `json:"max_references" yaml:"max_references"`
}

// KnowledgeConfig holds settings for the entity knowledge store.
type KnowledgeConfig struct {
	// KnowledgeDir is the base directory for the store (contains index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir"`

	// MaxEntities caps the number of entities attached to a Context
	// (default 30).
	MaxEntities int `json:"max_entities" yaml:"max_entities"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Backend selects the LLM API: "claude" or "openai".
	Backend string `json:"backend" yaml:"backend"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient API
	// failures (default 3). Retries happen inside the client; callers see
	// a single success or failure.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Temperature is the sampling temperature for completions.
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// MaxTokens bounds the completion length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// SatisfactionPolicy selects how the controller decides convergence.
type SatisfactionPolicy string

const (
	// PolicyAllMetrics converges when no metric scores below threshold.
	PolicyAllMetrics SatisfactionPolicy = "all-metrics"

	// PolicyAggregate converges when the mean score reaches threshold.
	PolicyAggregate SatisfactionPolicy = "aggregate"
)

// LoopConfig holds settings for the iteration controller.
type LoopConfig struct {
	// MaxRounds is the round budget per paper (default 3).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// SatisfactionThreshold is the per-metric (or aggregate) score a
	// round must reach to converge (default 4 on the 1-5 scale).
	SatisfactionThreshold float64 `json:"satisfaction_threshold" yaml:"satisfaction_threshold"`

	// SatisfactionPolicy selects the convergence rule (default all-metrics).
	SatisfactionPolicy SatisfactionPolicy `json:"satisfaction_policy" yaml:"satisfaction_policy"`

	// HistoryCap bounds the round history kept per run (default 10).
	// Oldest entries are evicted first.
	HistoryCap int `json:"history_cap" yaml:"history_cap"`

	// ReviewerRetryLimit is the number of per-reviewer retries the
	// validator performs on transient or format failures (default 2).
	ReviewerRetryLimit int `json:"reviewer_retry_limit" yaml:"reviewer_retry_limit"`

	// ParseRetryLimit is the number of identifier re-requests with a
	// stricter format instruction after an unparseable response (default 1).
	ParseRetryLimit int `json:"parse_retry_limit" yaml:"parse_retry_limit"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Loop      LoopConfig      `json:"loop" yaml:"loop"`

	// ReviewersPath points at the reviewer prompt configuration YAML.
	// Empty selects the built-in default five metrics.
	ReviewersPath string `json:"reviewers_path,omitempty" yaml:"reviewers_path,omitempty"`

	// OutputPath is the JSONL file run results are appended to
	// (default "output/ideas.jsonl").
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// ApplyDefaults fills zero-valued fields with the documented defaults.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Retrieval.Timeout <= 0 {
		c.Retrieval.Timeout = 60 * time.Second
	}
	if c.Retrieval.UserAgent == "" {
		c.Retrieval.UserAgent = "ideation-engine/0.1"
	}
	if c.Retrieval.MaxReferences <= 0 {
		c.Retrieval.MaxReferences = 10
	}
	if c.Knowledge.KnowledgeDir == "" {
		c.Knowledge.KnowledgeDir = "knowledge"
	}
	if c.Knowledge.MaxEntities <= 0 {
		c.Knowledge.MaxEntities = 30
	}
	if c.AI.Backend == "" {
		c.AI.Backend = "claude"
	}
	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = 3
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 4096
	}
	if c.Loop.MaxRounds <= 0 {
		c.Loop.MaxRounds = 3
	}
	if c.Loop.SatisfactionThreshold <= 0 {
		c.Loop.SatisfactionThreshold = 4
	}
	if c.Loop.SatisfactionPolicy == "" {
		c.Loop.SatisfactionPolicy = PolicyAllMetrics
	}
	if c.Loop.HistoryCap <= 0 {
		c.Loop.HistoryCap = 10
	}
	if c.Loop.ReviewerRetryLimit <= 0 {
		c.Loop.ReviewerRetryLimit = 2
	}
	if c.Loop.ParseRetryLimit <= 0 {
		c.Loop.ParseRetryLimit = 1
	}
	if c.OutputPath == "" {
		c.OutputPath = "output/ideas.jsonl"
	}
}
