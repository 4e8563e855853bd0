// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Metric identifies one reviewer quality dimension.
type Metric string

// The five problem-review metrics shipped with the default reviewer
// configuration. The validator treats the metric set as configuration
// data, so alternative sets may substitute these.
const (
	MetricClarity      Metric = "Clarity"
	MetricRelevance    Metric = "Relevance"
	MetricOriginality  Metric = "Originality"
	MetricFeasibility  Metric = "Feasibility"
	MetricSignificance Metric = "Significance"
)

// DefaultMetrics is the canonical ordering of the default metric set.
var DefaultMetrics = []Metric{
	MetricClarity,
	MetricRelevance,
	MetricOriginality,
	MetricFeasibility,
	MetricSignificance,
}

// ScoreScale bounds reviewer ratings: a Likert scale from 1 to 5.
const (
	ScoreMin = 1
	ScoreMax = 5
)

// Proposal is one candidate research problem produced in a given round.
// Proposals are immutable; each round produces a new one.
type Proposal struct {
	// Statement is the problem statement text.
	Statement string `json:"statement" yaml:"statement"`

	// Rationale is the supporting rationale text.
	Rationale string `json:"rationale" yaml:"rationale"`

	// Round is the zero-based round that produced this proposal.
	Round int `json:"round" yaml:"round"`
}

// MetricScore is one reviewer's evaluation of a proposal on one metric.
type MetricScore struct {
	Metric Metric `json:"metric" yaml:"metric"`

	// Score is the rating in [ScoreMin, ScoreMax].
	Score int `json:"score" yaml:"score"`

	// Review is the reviewer's free-text assessment.
	Review string `json:"review" yaml:"review"`

	// Feedback is the reviewer's actionable improvement guidance.
	Feedback string `json:"feedback" yaml:"feedback"`
}

// Scorecard is the complete set of per-metric reviewer scores for one
// proposal. A scorecard is only ever constructed with every configured
// metric present; a missing reviewer result is a validation failure,
// never an absent key.
type Scorecard struct {
	// Order preserves the configured metric ordering for deterministic
	// iteration.
	Order []Metric `json:"order" yaml:"order"`

	// Scores maps each metric in Order to its reviewer result.
	Scores map[Metric]MetricScore `json:"scores" yaml:"scores"`
}

// Aggregate returns the mean score across all metrics, or 0 for an
// empty scorecard.
func (s *Scorecard) Aggregate() float64 {
	if len(s.Scores) == 0 {
		return 0
	}
	sum := 0
	for _, ms := range s.Scores {
		sum += ms.Score
	}
	return float64(sum) / float64(len(s.Scores))
}

// WeakMetrics returns, in configured order, the metrics whose score falls
// below threshold.
func (s *Scorecard) WeakMetrics(threshold float64) []Metric {
	var weak []Metric
	for _, m := range s.Order {
		if ms, ok := s.Scores[m]; ok && float64(ms.Score) < threshold {
			weak = append(weak, m)
		}
	}
	return weak
}

// StrongMetrics returns, in configured order, the metrics at or above
// threshold. Used when a refinement prompt calls out preserved strengths.
func (s *Scorecard) StrongMetrics(threshold float64) []Metric {
	var strong []Metric
	for _, m := range s.Order {
		if ms, ok := s.Scores[m]; ok && float64(ms.Score) >= threshold {
			strong = append(strong, m)
		}
	}
	return strong
}

// Complete reports whether the scorecard carries a result for every
// metric in want.
func (s *Scorecard) Complete(want []Metric) bool {
	for _, m := range want {
		if _, ok := s.Scores[m]; !ok {
			return false
		}
	}
	return len(s.Scores) == len(want)
}

// HistoryEntry pairs a proposal with its scorecard for one completed round.
type HistoryEntry struct {
	Proposal  Proposal  `json:"proposal" yaml:"proposal"`
	Scorecard Scorecard `json:"scorecard" yaml:"scorecard"`
}

// RunStatus is the terminal status of one pipeline run.
type RunStatus string

const (
	// StatusConverged means the satisfaction policy accepted a round.
	StatusConverged RunStatus = "converged"

	// StatusBudgetExhausted means the round budget ran out; the result is
	// the best-scoring round seen, not necessarily the last.
	StatusBudgetExhausted RunStatus = "budget_exhausted"

	// StatusAborted means a fatal generation or validation failure ended
	// the run early; the result is the best round completed before the
	// failure, if any.
	StatusAborted RunStatus = "aborted"
)

// RunResult is the per-paper output record: the final proposal and
// scorecard, the terminal status, and the full bounded round history.
// One RunResult is serialized per line in the output JSONL.
type RunResult struct {
	// RunID is a ULID assigned when the run starts.
	RunID string `json:"run_id" yaml:"run_id"`

	// PaperID is the target paper identifier as given in the input list.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Status is the terminal status of the run.
	Status RunStatus `json:"status" yaml:"status"`

	// Rounds is the number of fully completed rounds.
	Rounds int `json:"rounds" yaml:"rounds"`

	// Final is the selected (proposal, scorecard) pair. Nil only for
	// aborted runs with no completed round.
	Final *HistoryEntry `json:"final,omitempty" yaml:"final,omitempty"`

	// History is the bounded round history, oldest first.
	History []HistoryEntry `json:"history" yaml:"history"`

	// Error records the abort cause for aborted runs.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
