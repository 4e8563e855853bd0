// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the ideation flow over a batch of target papers:
// assemble a context, iterate propose-validate-refine, and append one
// result record per paper to the output JSONL.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// ContextAssembler builds the grounding context for one target paper.
type ContextAssembler interface {
	Assemble(ctx context.Context, paperID string) (*types.Context, error)
}

// Runner executes the iteration loop over an assembled context.
type Runner interface {
	Run(ctx context.Context, cx *types.Context) *types.RunResult
}

// Summary holds terminal-status counts from one batch.
type Summary struct {
	Converged int
	Exhausted int
	Aborted   int
}

// Total returns the number of papers processed.
func (s Summary) Total() int {
	return s.Converged + s.Exhausted + s.Aborted
}

// Pipeline orchestrates runs over a batch of paper ids. Each paper
// produces exactly one RunResult line in the output file; a paper whose
// context cannot be assembled is recorded as aborted and the batch
// continues.
type Pipeline struct {
	Assembler  ContextAssembler
	Controller Runner

	// OutputPath is the JSONL file results are appended to. Parent
	// directories are created on demand.
	OutputPath string

	// Progress receives one line per paper plus a final summary.
	// Nil discards.
	Progress io.Writer
}

// Run processes the paper ids in order and returns the batch summary.
// The returned error reports output-file failures only; per-paper
// failures are recorded in their result records.
func (p *Pipeline) Run(ctx context.Context, paperIDs []string) (Summary, error) {
	var summary Summary

	for _, paperID := range paperIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := p.runOne(ctx, paperID)

		switch result.Status {
		case types.StatusConverged:
			summary.Converged++
		case types.StatusBudgetExhausted:
			summary.Exhausted++
		default:
			summary.Aborted++
		}
		p.logResult(result)

		if err := p.appendResult(result); err != nil {
			return summary, err
		}
	}

	if p.Progress != nil {
		fmt.Fprintf(p.Progress, "\nconverged: %d, budget exhausted: %d, aborted: %d\n",
			summary.Converged, summary.Exhausted, summary.Aborted)
	}
	return summary, nil
}

// runOne executes a single paper run. Assembly failures become aborted
// results so the output carries a record for every input paper.
func (p *Pipeline) runOne(ctx context.Context, paperID string) *types.RunResult {
	runID := ulid.Make().String()

	cx, err := p.Assembler.Assemble(ctx, paperID)
	if err != nil {
		return &types.RunResult{
			RunID:   runID,
			PaperID: paperID,
			Status:  types.StatusAborted,
			Error:   fmt.Sprintf("assembling context: %v", err),
		}
	}

	result := p.Controller.Run(ctx, cx)
	result.RunID = runID
	result.PaperID = paperID
	return result
}

// appendResult writes one result as a JSON line, creating the output
// directory on first use.
func (p *Pipeline) appendResult(result *types.RunResult) error {
	if dir := filepath.Dir(p.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.OpenFile(p.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", p.OutputPath, err)
	}
	defer f.Close()

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", result.PaperID, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing result for %s: %w", result.PaperID, err)
	}
	return nil
}

func (p *Pipeline) logResult(result *types.RunResult) {
	if p.Progress == nil {
		return
	}
	switch result.Status {
	case types.StatusAborted:
		fmt.Fprintf(p.Progress, "aborted   %s: %s\n", result.PaperID, result.Error)
	case types.StatusConverged:
		fmt.Fprintf(p.Progress, "converged %s in %d round(s)\n", result.PaperID, result.Rounds)
	default:
		fmt.Fprintf(p.Progress, "exhausted %s after %d round(s)\n", result.PaperID, result.Rounds)
	}
}
