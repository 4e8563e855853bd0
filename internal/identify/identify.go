// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identify generates and refines research problem proposals
// from an assembled Context using a Generative AI API.
package identify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/ideation-engine/internal/llm"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

// FormatError reports a model response that does not follow the
// Problem/Rationale output format. The identifier retries these a
// bounded number of times with a stricter instruction before giving up.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return "response does not match the Problem/Rationale format"
}

// Identifier produces proposals. One Identifier serves one run; it is
// not safe for concurrent use.
type Identifier struct {
	// Client completes prompts. Required.
	Client llm.Client

	// Options are passed through to the client on every request.
	Options llm.Options

	// ParseRetryLimit is how many times an unparseable response is
	// re-requested with a format reminder before the FormatError is
	// returned to the caller.
	ParseRetryLimit int
}

// RefineRequest carries everything a refinement round needs: the
// reviewed proposal being revised, the metrics flagged as weak, the
// superseded earlier rounds, and the metric definitions used to brief
// the model.
type RefineRequest struct {
	// Last is the most recent round: the proposal under revision and
	// its scorecard.
	Last types.HistoryEntry

	// Weak lists the metrics needing improvement. Empty means every
	// metric is treated as a target (the aggregate policy can fall
	// below threshold with no single weak metric).
	Weak []types.Metric

	// Older holds the superseded rounds, oldest first. They appear in
	// the prompt as one-line summaries.
	Older []types.HistoryEntry

	// Definitions maps each metric to its reviewer definition text.
	Definitions map[types.Metric]string
}

// Identify generates the round-zero proposal for the given context.
func (id *Identifier) Identify(ctx context.Context, cx *types.Context, round int) (*types.Proposal, error) {
	prompt, err := renderGenerationPrompt(cx)
	if err != nil {
		return nil, fmt.Errorf("rendering generation prompt: %w", err)
	}
	return id.complete(ctx, prompt, round)
}

// Refine generates a revised proposal for a later round.
func (id *Identifier) Refine(ctx context.Context, cx *types.Context, req RefineRequest, round int) (*types.Proposal, error) {
	weak := req.Weak
	if len(weak) == 0 {
		weak = req.Last.Scorecard.Order
	}
	strong := complement(req.Last.Scorecard.Order, weak)

	prompt, err := renderRefinementPrompt(cx, req, weak, strong)
	if err != nil {
		return nil, fmt.Errorf("rendering refinement prompt: %w", err)
	}
	return id.complete(ctx, prompt, round)
}

// complete sends the prompt and parses the response, re-requesting with
// a format reminder when parsing fails.
func (id *Identifier) complete(ctx context.Context, prompt string, round int) (*types.Proposal, error) {
	attempts := id.ParseRetryLimit + 1
	var lastErr error

	p := prompt
	for attempt := 0; attempt < attempts; attempt++ {
		raw, err := id.Client.Complete(ctx, p, id.Options)
		if err != nil {
			return nil, err
		}

		proposal, err := ParseProposal(raw)
		if err == nil {
			proposal.Round = round
			return proposal, nil
		}
		lastErr = err
		p = prompt + formatReminder
	}

	return nil, lastErr
}

// proposalPattern matches the Problem/Rationale output format. Markdown
// decoration is stripped before matching.
var proposalPattern = regexp.MustCompile(`(?is)Problem:\s*(.*?)\s*Rationale:\s*(.*)`)

// ParseProposal extracts the problem statement and rationale from a
// model response. Both sections must be present and non-empty.
func ParseProposal(raw string) (*types.Proposal, error) {
	cleaned := stripMarkdown(raw)

	m := proposalPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, &FormatError{Raw: raw}
	}

	statement := strings.TrimSpace(m[1])
	rationale := strings.TrimSpace(m[2])
	if statement == "" || rationale == "" {
		return nil, &FormatError{Raw: raw}
	}

	return &types.Proposal{Statement: statement, Rationale: rationale}, nil
}

// stripMarkdown removes the bold and italic markers that models wrap
// around section labels, and normalizes newlines.
func stripMarkdown(text string) string {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.ReplaceAll(cleaned, "**", "")
	return strings.ReplaceAll(cleaned, "__", "")
}

// complement returns the metrics of all not present in sub, preserving
// the order of all.
func complement(all, sub []types.Metric) []types.Metric {
	in := make(map[types.Metric]bool, len(sub))
	for _, m := range sub {
		in[m] = true
	}
	var out []types.Metric
	for _, m := range all {
		if !in[m] {
			out = append(out, m)
		}
	}
	return out
}
