// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperRecord holds the metadata for one paper fetched from the
// bibliographic graph API. Records are immutable once fetched.
type PaperRecord struct {
	// ID is the graph API paper identifier (e.g. "CorpusId:215416146"
	// or a 40-character paper hash).
	ID string `json:"id" yaml:"id"`

	// CorpusID is the numeric corpus identifier used by the knowledge store.
	CorpusID int64 `json:"corpus_id" yaml:"corpus_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// ReferenceCount is the number of references reported by the graph API.
	ReferenceCount int `json:"reference_count,omitempty" yaml:"reference_count,omitempty"`

	// Embedding is the specter_v2 document embedding, when available.
	// Used only for ranking references by similarity; omitted from output.
	Embedding []float64 `json:"-" yaml:"-"`
}

// Reference is a resolved reference of a target paper together with the
// relevance signal assigned by the retrieval layer.
type Reference struct {
	PaperRecord `yaml:",inline"`

	// Relevance is the similarity of this reference to the target paper,
	// in [0, 1] when embedding-based and positional otherwise.
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

// Entity is a knowledge-store entity relevant to a paper. Entities are
// retrieved read-only and never mutated by the pipeline.
type Entity struct {
	// Name is the entity surface form (e.g. "graph attention networks").
	Name string `json:"name" yaml:"name"`

	// Type tags the entity kind. The store currently emits "concept".
	Type string `json:"type" yaml:"type"`

	// Weight is the store's relevance score for the querying paper set.
	// Higher is more relevant.
	Weight float64 `json:"weight" yaml:"weight"`

	// CoOccurring maps co-occurring entity names to co-occurrence counts,
	// truncated to the strongest few.
	CoOccurring map[string]float64 `json:"co_occurring,omitempty" yaml:"co_occurring,omitempty"`
}

// Context is the assembled grounding for one pipeline run: the target
// paper, its most relevant references (most-relevant-first), and the
// most relevant knowledge-store entities (highest-weight-first).
// A Context is built once per run and read-only thereafter.
type Context struct {
	Paper      PaperRecord `json:"paper" yaml:"paper"`
	References []Reference `json:"references" yaml:"references"`
	Entities   []Entity    `json:"entities" yaml:"entities"`
}
