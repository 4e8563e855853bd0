// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble builds the grounding Context for a pipeline run: the
// target paper, its most relevant references, and related knowledge
// store entities.
package assemble

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// PaperFetcher supplies the target paper and its references.
type PaperFetcher interface {
	FetchPaper(ctx context.Context, id string) (*types.PaperRecord, error)
	FetchReferences(ctx context.Context, paper *types.PaperRecord, max int) ([]types.Reference, error)
}

// EntityStore supplies knowledge entities relevant to a set of papers.
type EntityStore interface {
	RelevantEntities(ctx context.Context, corpusIDs []int64, max int) ([]types.Entity, error)
}

// Assembler builds Contexts. The target paper is required; references
// and entities are enrichment and their failures degrade the Context
// rather than failing the run.
type Assembler struct {
	// Fetcher retrieves papers. Required.
	Fetcher PaperFetcher

	// Store retrieves knowledge entities. Nil disables entity enrichment.
	Store EntityStore

	// MaxReferences caps references attached to the Context.
	MaxReferences int

	// MaxEntities caps entities attached to the Context.
	MaxEntities int

	// Progress receives warning lines for degraded assembly. Nil
	// discards them.
	Progress io.Writer
}

// Assemble builds the Context for one target paper. Failure to fetch
// the target itself is returned as-is (a *retrieve.RetrievalError from
// the graph API fetcher); reference and entity failures leave the
// corresponding section empty.
func (a *Assembler) Assemble(ctx context.Context, paperID string) (*types.Context, error) {
	paper, err := a.Fetcher.FetchPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}

	refs, err := a.Fetcher.FetchReferences(ctx, paper, a.MaxReferences)
	if err != nil {
		a.warnf("references of %s unavailable: %v\n", paperID, err)
		refs = nil
	}

	var entities []types.Entity
	if a.Store != nil {
		corpusIDs := collectCorpusIDs(paper, refs)
		entities, err = a.Store.RelevantEntities(ctx, corpusIDs, a.MaxEntities)
		if err != nil {
			a.warnf("entities for %s unavailable: %v\n", paperID, err)
			entities = nil
		}
	}

	return &types.Context{
		Paper:      *paper,
		References: refs,
		Entities:   entities,
	}, nil
}

// collectCorpusIDs gathers the corpus ids of the target and its
// references, skipping papers without one.
func collectCorpusIDs(paper *types.PaperRecord, refs []types.Reference) []int64 {
	ids := make([]int64, 0, len(refs)+1)
	if paper.CorpusID != 0 {
		ids = append(ids, paper.CorpusID)
	}
	for _, r := range refs {
		if r.CorpusID != 0 {
			ids = append(ids, r.CorpusID)
		}
	}
	return ids
}

func (a *Assembler) warnf(format string, args ...any) {
	if a.Progress == nil {
		return
	}
	fmt.Fprintf(a.Progress, "warning: "+format, args...)
}
