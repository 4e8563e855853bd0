// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// rubricLevels is the number of anchors on the Likert scale.
const rubricLevels = types.ScoreMax - types.ScoreMin + 1

// ReviewerSpec configures one reviewer of the validation panel.
type ReviewerSpec struct {
	// Metric is the quality dimension this reviewer scores.
	Metric types.Metric `json:"metric" yaml:"metric"`

	// Description defines the metric. It briefs the identifier during
	// refinement as well as this reviewer.
	Description string `json:"description" yaml:"description"`

	// Focus completes the sentence "evaluate a research problem for its
	// <metric>, focusing on ..." in the reviewer prompt.
	Focus string `json:"focus" yaml:"focus"`

	// Rubric holds one anchor per scale point, lowest first.
	Rubric []string `json:"rubric" yaml:"rubric"`
}

// Config is the validation panel configuration: one reviewer per metric.
type Config struct {
	Reviewers []ReviewerSpec `json:"reviewers" yaml:"reviewers"`
}

// LoadConfig reads a reviewer panel from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reviewer config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing reviewer config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("reviewer config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Reviewers) == 0 {
		return fmt.Errorf("no reviewers defined")
	}

	seen := make(map[types.Metric]bool)
	for i, r := range c.Reviewers {
		if r.Metric == "" {
			return fmt.Errorf("reviewer %d has no metric", i)
		}
		if seen[r.Metric] {
			return fmt.Errorf("duplicate metric %q", r.Metric)
		}
		seen[r.Metric] = true
		if r.Description == "" || r.Focus == "" {
			return fmt.Errorf("reviewer %q missing description or focus", r.Metric)
		}
		if len(r.Rubric) != rubricLevels {
			return fmt.Errorf("reviewer %q has %d rubric anchors, want %d", r.Metric, len(r.Rubric), rubricLevels)
		}
	}
	return nil
}

// Metrics returns the configured metrics in panel order.
func (c *Config) Metrics() []types.Metric {
	metrics := make([]types.Metric, len(c.Reviewers))
	for i, r := range c.Reviewers {
		metrics[i] = r.Metric
	}
	return metrics
}

// Definitions returns the metric definition texts, keyed by metric.
func (c *Config) Definitions() map[types.Metric]string {
	defs := make(map[types.Metric]string, len(c.Reviewers))
	for _, r := range c.Reviewers {
		defs[r.Metric] = r.Description
	}
	return defs
}

// DefaultConfig returns the built-in panel: clarity, relevance,
// originality, feasibility, and significance.
func DefaultConfig() *Config {
	return &Config{Reviewers: []ReviewerSpec{
		{
			Metric:      types.MetricClarity,
			Description: "It assesses whether the problem is defined in a clear, precise, and understandable manner.",
			Focus:       "how well it is defined in a clear, precise, and understandable manner",
			Rubric: []string{
				"The problem is presented in a highly ambiguous manner, lacking clear definition and leaving significant room for interpretation or confusion.",
				"The problem is somewhat defined but suffers from vague terms and insufficient detail, making it challenging to grasp the full scope or objective.",
				"The problem is stated in a straightforward manner, but lacks the depth or specificity needed to fully convey the nuances and boundaries of the research scope.",
				"The problem is clearly articulated with precise terminology and sufficient detail, providing a solid understanding of the scope and objectives with minimal ambiguity.",
				"The problem is exceptionally clear, concise, and specific, with every term and aspect well-defined, leaving no room for misinterpretation and fully encapsulating the research scope and aims.",
			},
		},
		{
			Metric:      types.MetricRelevance,
			Description: "It measures whether the problem is pertinent and applicable to the current field or context of study.",
			Focus:       "how well it is pertinent and applicable to the current field or context of study",
			Rubric: []string{
				"The problem shows almost no relevance to the current field, failing to connect with the established context or build upon existing work.",
				"The problem has minimal relevance, with only superficial connections to the field and a lack of meaningful integration with prior studies.",
				"The problem is somewhat relevant, making a moderate attempt to align with the field but lacking significant innovation or depth.",
				"The problem is relevant and well-connected to the field, demonstrating a good understanding of existing work and offering promising contributions.",
				"The problem is highly relevant, deeply integrated with the current context, and represents a significant advancement in the field.",
			},
		},
		{
			Metric:      types.MetricOriginality,
			Description: "It evaluates whether the problem presents a novel challenge or unique perspective that has not been extensively explored before.",
			Focus:       "how well it presents a novel challenge or unique perspective that has not been extensively explored before",
			Rubric: []string{
				"The problem exhibits no discernible originality, closely mirroring existing studies without introducing any novel perspectives or challenges.",
				"The problem shows minimal originality, with slight variations from known studies, lacking significant new insights or innovative approaches.",
				"The problem demonstrates moderate originality, offering some new insights or angles, but these are not sufficiently groundbreaking or distinct from existing work.",
				"The problem is notably original, presenting a unique challenge or perspective that is well-differentiated from existing studies, contributing valuable new understanding to the field.",
				"The problem is highly original, introducing a pioneering challenge or perspective that has not been explored before, setting a new direction for future research.",
			},
		},
		{
			Metric:      types.MetricFeasibility,
			Description: "It examines whether the problem can realistically be investigated or solved with the available resources and within reasonable constraints.",
			Focus:       "how well it can realistically be investigated or solved with the available resources and within reasonable constraints",
			Rubric: []string{
				"The problem is fundamentally infeasible due to insurmountable resource constraints, lack of foundational research, or critical methodological flaws.",
				"The problem faces significant feasibility challenges related to resource availability, existing knowledge gaps, or technical limitations, making progress unlikely.",
				"The problem is feasible to some extent but faces notable obstacles in resources, existing research support, or technical implementation, which could hinder significant advancements.",
				"The problem is mostly feasible with manageable challenges in resources, supported by adequate existing research, and has a clear, achievable methodology, though minor issues may persist.",
				"The problem is highly feasible with minimal barriers, well-supported by existing research, ample resources, and a robust, clear methodology, promising significant advancements.",
			},
		},
		{
			Metric:      types.MetricSignificance,
			Description: "It assesses the importance and potential impact of solving the problem, including its contribution to the field or its broader implications.",
			Focus:       "how well it demonstrates the importance and potential impact of solving the problem, including its contribution to the field or its broader implications",
			Rubric: []string{
				"The problem shows minimal to no significance, lacking relevance or potential impact in advancing the field or contributing to practical applications.",
				"The problem has limited significance, with a narrow scope of impact and minor contributions to the field, offering little to no practical implications.",
				"The problem demonstrates average significance, with some contributions to the field and potential practical implications, but lacks innovation or broader impact.",
				"The problem is significant, offering notable contributions to the field and valuable practical implications, with evidence of potential for broader impact and advancement.",
				"The problem presents exceptional significance, with groundbreaking contributions to the field, broad and transformative potential impacts, and substantial practical applications across diverse domains.",
			},
		},
	}}
}
