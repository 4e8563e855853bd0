// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve fetches paper records and ranked references from the
// Semantic Scholar Graph API.
package retrieve

import (
	"context"
	"fmt"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// RetrievalError reports that a target paper could not be obtained.
// It is fatal to the run for that paper: without the target there is
// nothing to ground problem identification on.
type RetrievalError struct {
	PaperID string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving paper %s: %v", e.PaperID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Fetcher is the retrieval contract the context assembler depends on.
// FetchReferences returns references ordered most-relevant-first; a
// reference that fails to resolve is skipped, not surfaced.
type Fetcher interface {
	FetchPaper(ctx context.Context, id string) (*types.PaperRecord, error)
	FetchReferences(ctx context.Context, paper *types.PaperRecord, max int) ([]types.Reference, error)
}
