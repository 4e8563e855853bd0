// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate scores proposals with a panel of reviewers, one per
// configured metric, run concurrently against a Generative AI API.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ideation-engine/internal/llm"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

// FormatError reports a reviewer response that does not follow the
// Review/Feedback/Rating output format.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return "response does not match the Review/Feedback/Rating format"
}

// ReviewerFailure records one reviewer that could not produce a score.
type ReviewerFailure struct {
	Metric types.Metric
	Err    error
}

// ScorecardError reports an incomplete panel: one or more reviewers
// failed after retries. No partial scorecard is ever returned alongside
// it.
type ScorecardError struct {
	Failures []ReviewerFailure
}

func (e *ScorecardError) Error() string {
	metrics := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		metrics[i] = string(f.Metric)
	}
	return fmt.Sprintf("validation incomplete: %d reviewer(s) failed (%s): %v",
		len(e.Failures), strings.Join(metrics, ", "), e.Failures[0].Err)
}

// Validator runs the review panel. Safe for concurrent use as long as
// the underlying client is.
type Validator struct {
	// Client completes prompts. Must be safe for concurrent use.
	Client llm.Client

	// Options are passed through to the client on every request.
	Options llm.Options

	// Config is the reviewer panel. Nil selects DefaultConfig.
	Config *Config

	// RetryLimit is how many times one reviewer is retried after a
	// transient or format failure. Fatal failures are never retried.
	RetryLimit int
}

func (v *Validator) config() *Config {
	if v.Config != nil {
		return v.Config
	}
	return DefaultConfig()
}

// Validate scores the proposal on every configured metric. All
// reviewers run concurrently; the scorecard is returned only when every
// one of them produced a result. Otherwise the error is a
// *ScorecardError listing the failed metrics.
func (v *Validator) Validate(ctx context.Context, cx *types.Context, proposal *types.Proposal) (*types.Scorecard, error) {
	cfg := v.config()
	n := len(cfg.Reviewers)

	results := make([]types.MetricScore, n)
	failures := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Reviewers {
		i := i
		g.Go(func() error {
			score, err := v.review(gctx, &cfg.Reviewers[i], cx, proposal)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = score
			return nil
		})
	}
	g.Wait()

	var failed []ReviewerFailure
	for i, err := range failures {
		if err != nil {
			failed = append(failed, ReviewerFailure{Metric: cfg.Reviewers[i].Metric, Err: err})
		}
	}
	if len(failed) > 0 {
		return nil, &ScorecardError{Failures: failed}
	}

	sc := &types.Scorecard{
		Order:  cfg.Metrics(),
		Scores: make(map[types.Metric]types.MetricScore, n),
	}
	for _, score := range results {
		sc.Scores[score.Metric] = score
	}
	return sc, nil
}

// review runs one reviewer with bounded retries. Transient API failures
// and unparseable responses are retried; fatal API failures are not.
func (v *Validator) review(ctx context.Context, spec *ReviewerSpec, cx *types.Context, proposal *types.Proposal) (types.MetricScore, error) {
	prompt, err := renderReviewPrompt(spec, cx, proposal)
	if err != nil {
		return types.MetricScore{}, fmt.Errorf("rendering %s prompt: %w", spec.Metric, err)
	}

	attempts := v.RetryLimit + 1
	var lastErr error

	p := prompt
	for attempt := 0; attempt < attempts; attempt++ {
		raw, err := v.Client.Complete(ctx, p, v.Options)
		if err != nil {
			if llm.IsFatal(err) || ctx.Err() != nil {
				return types.MetricScore{}, err
			}
			lastErr = err
			continue
		}

		score, err := parseReview(raw)
		if err != nil {
			lastErr = err
			p = prompt + reviewReminder
			continue
		}

		score.Metric = spec.Metric
		return score, nil
	}

	return types.MetricScore{}, lastErr
}

// reviewSectionPattern matches the three labelled sections. Labels may
// carry a parenthesized scale hint and bullet markers; markdown is
// stripped before matching.
var reviewSectionPattern = regexp.MustCompile(
	`(?is)(?:[-*]\s*)?Review(?:\s*\([^)]*\))?\s*:\s*(.*?)\n\s*(?:[-*]\s*)?Feedback(?:\s*\([^)]*\))?\s*:\s*(.*?)\n\s*(?:[-*]\s*)?Rating(?:\s*\([^)]*\))?\s*:?\s*(.*)`)

// ratingPattern extracts the score digit, tolerating "4/5" style.
var ratingPattern = regexp.MustCompile(`([1-5])(?:\s*/\s*5)?`)

// parseReview extracts review, feedback, and rating from a reviewer
// response. All three must be present; the rating must be a scale digit.
func parseReview(raw string) (types.MetricScore, error) {
	cleaned := stripMarkdown(raw)

	m := reviewSectionPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return types.MetricScore{}, &FormatError{Raw: raw}
	}

	review := strings.TrimSpace(m[1])
	feedback := strings.TrimSpace(m[2])
	rm := ratingPattern.FindStringSubmatch(m[3])
	if review == "" || feedback == "" || rm == nil {
		return types.MetricScore{}, &FormatError{Raw: raw}
	}

	rating, err := strconv.Atoi(rm[1])
	if err != nil || rating < types.ScoreMin || rating > types.ScoreMax {
		return types.MetricScore{}, &FormatError{Raw: raw}
	}

	return types.MetricScore{Score: rating, Review: review, Feedback: feedback}, nil
}

func stripMarkdown(text string) string {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.ReplaceAll(cleaned, "**", "")
	return strings.ReplaceAll(cleaned, "__", "")
}
