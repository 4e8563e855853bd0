// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package loop drives the propose-validate-refine iteration for one
// paper until the satisfaction policy accepts a round, the round budget
// runs out, or a stage fails fatally.
package loop

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/ideation-engine/internal/identify"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

// Identifier is the proposal stage contract.
type Identifier interface {
	Identify(ctx context.Context, cx *types.Context, round int) (*types.Proposal, error)
	Refine(ctx context.Context, cx *types.Context, req identify.RefineRequest, round int) (*types.Proposal, error)
}

// Validator is the review stage contract.
type Validator interface {
	Validate(ctx context.Context, cx *types.Context, proposal *types.Proposal) (*types.Scorecard, error)
}

// Controller iterates one run. It owns the history and the convergence
// decision; stage failures abort the run with the best completed round
// as the result.
type Controller struct {
	Identifier Identifier
	Validator  Validator
	Config     types.LoopConfig

	// Definitions briefs the refinement prompt on each metric. Usually
	// the validator config's Definitions().
	Definitions map[types.Metric]string

	// Progress receives one line per completed round. Nil discards.
	Progress io.Writer
}

// Run executes the iteration for an assembled context. The returned
// result always carries the retained history; Final is nil only when
// the run aborted before completing a single round.
func (c *Controller) Run(ctx context.Context, cx *types.Context) *types.RunResult {
	cfg := c.Config
	history := NewHistory(cfg.HistoryCap)
	completed := 0

	for round := 0; round < cfg.MaxRounds; round++ {
		proposal, err := c.propose(ctx, cx, history, round)
		if err != nil {
			return c.abort(history, completed, fmt.Errorf("round %d: generating proposal: %w", round, err))
		}

		scorecard, err := c.Validator.Validate(ctx, cx, proposal)
		if err != nil {
			return c.abort(history, completed, fmt.Errorf("round %d: validating proposal: %w", round, err))
		}

		entry := types.HistoryEntry{Proposal: *proposal, Scorecard: *scorecard}
		history.Append(entry)
		completed++
		c.logRound(&entry)

		if c.satisfied(scorecard) {
			return &types.RunResult{
				Status:  types.StatusConverged,
				Rounds:  completed,
				Final:   &entry,
				History: history.All(),
			}
		}
	}

	// Budget exhausted: the best round wins, not necessarily the last.
	best, _ := history.Best()
	return &types.RunResult{
		Status:  types.StatusBudgetExhausted,
		Rounds:  completed,
		Final:   &best,
		History: history.All(),
	}
}

// propose generates the round's proposal: fresh on the first round,
// refined from the latest reviewed round afterwards.
func (c *Controller) propose(ctx context.Context, cx *types.Context, history *History, round int) (*types.Proposal, error) {
	last, ok := history.Last()
	if !ok {
		return c.Identifier.Identify(ctx, cx, round)
	}

	req := identify.RefineRequest{
		Last:        last,
		Weak:        last.Scorecard.WeakMetrics(c.Config.SatisfactionThreshold),
		Older:       history.Older(),
		Definitions: c.Definitions,
	}
	return c.Identifier.Refine(ctx, cx, req, round)
}

// satisfied applies the configured convergence rule to a scorecard.
func (c *Controller) satisfied(sc *types.Scorecard) bool {
	threshold := c.Config.SatisfactionThreshold
	if c.Config.SatisfactionPolicy == types.PolicyAggregate {
		return sc.Aggregate() >= threshold
	}
	return len(sc.WeakMetrics(threshold)) == 0
}

func (c *Controller) abort(history *History, completed int, cause error) *types.RunResult {
	result := &types.RunResult{
		Status:  types.StatusAborted,
		Rounds:  completed,
		History: history.All(),
		Error:   cause.Error(),
	}
	if best, ok := history.Best(); ok {
		result.Final = &best
	}
	return result
}

func (c *Controller) logRound(entry *types.HistoryEntry) {
	if c.Progress == nil {
		return
	}
	weak := entry.Scorecard.WeakMetrics(c.Config.SatisfactionThreshold)
	names := make([]string, len(weak))
	for i, m := range weak {
		names[i] = string(m)
	}
	weakNote := "none"
	if len(names) > 0 {
		weakNote = strings.Join(names, ", ")
	}
	fmt.Fprintf(c.Progress, "round %d: mean %.2f, weak: %s\n",
		entry.Proposal.Round, entry.Scorecard.Aggregate(), weakNote)
}
