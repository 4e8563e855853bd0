// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"

	"github.com/pdiddy/ideation-engine/internal/httputil"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

// graphAPIBase is the Semantic Scholar Graph API root. Declared as a
// var so tests can substitute an httptest server.
var graphAPIBase = "https://api.semanticscholar.org/graph/v1"

const (
	paperFields     = "paperId,corpusId,title,abstract,referenceCount,embedding.specter_v2"
	referenceFields = "paperId,corpusId,title,abstract,embedding.specter_v2"
	referencePage   = 100
)

// SemanticScholar fetches papers and references from the Graph API.
type SemanticScholar struct {
	Client *http.Client
	Config types.RetrievalConfig
}

// FetchPaper retrieves the target paper's metadata and document
// embedding. An unknown identifier or an unreachable API (after the
// rate-limit retry policy is exhausted) yields a *RetrievalError.
func (s *SemanticScholar) FetchPaper(ctx context.Context, id string) (*types.PaperRecord, error) {
	reqURL := fmt.Sprintf("%s/paper/%s?fields=%s", graphAPIBase, url.PathEscape(id), paperFields)

	var gp graphPaper
	if err := s.getJSON(ctx, reqURL, &gp); err != nil {
		return nil, &RetrievalError{PaperID: id, Err: err}
	}
	if gp.Title == "" {
		return nil, &RetrievalError{PaperID: id, Err: fmt.Errorf("record has no title")}
	}

	return gp.toRecord(), nil
}

// FetchReferences pages through the target's reference list, drops
// entries that lack a title or abstract, ranks the remainder by cosine
// similarity of specter embeddings against the target (falling back to
// original citation order when embeddings are missing), and returns the
// top max. Ties keep original reference order.
func (s *SemanticScholar) FetchReferences(ctx context.Context, paper *types.PaperRecord, max int) ([]types.Reference, error) {
	if max <= 0 {
		max = 10
	}

	var resolved []types.Reference
	pages := paper.ReferenceCount/referencePage + 1
	for page := 0; page < pages; page++ {
		reqURL := fmt.Sprintf("%s/paper/%s/references?fields=%s&offset=%d&limit=%d",
			graphAPIBase, url.PathEscape(paper.ID), referenceFields, page*referencePage, referencePage)

		var gr graphReferences
		if err := s.getJSON(ctx, reqURL, &gr); err != nil {
			return nil, fmt.Errorf("listing references of %s: %w", paper.ID, err)
		}

		for _, entry := range gr.Data {
			cited := entry.CitedPaper
			if cited == nil || cited.Title == "" || cited.Abstract == "" {
				continue
			}
			resolved = append(resolved, types.Reference{PaperRecord: *cited.toRecord()})
		}

		if len(gr.Data) < referencePage {
			break
		}
	}

	rankReferences(paper, resolved)
	if len(resolved) > max {
		resolved = resolved[:max]
	}
	return resolved, nil
}

// rankReferences assigns relevance scores in place and sorts
// most-relevant-first. With a target embedding, relevance is cosine
// similarity mapped into [0, 1]; references without an embedding sort
// after those with one. Without a target embedding every reference
// keeps its citation-order position with a decaying positional score.
func rankReferences(target *types.PaperRecord, refs []types.Reference) {
	n := len(refs)
	if n == 0 {
		return
	}

	if len(target.Embedding) == 0 {
		for i := range refs {
			refs[i].Relevance = positionalScore(i, n)
		}
		return
	}

	order := make(map[string]int, n)
	for i, r := range refs {
		order[r.ID] = i
		if len(r.Embedding) == 0 {
			refs[i].Relevance = 0
			continue
		}
		refs[i].Relevance = (cosineSimilarity(target.Embedding, r.Embedding) + 1) / 2
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Relevance != refs[j].Relevance {
			return refs[i].Relevance > refs[j].Relevance
		}
		return order[refs[i].ID] < order[refs[j].ID]
	})
}

// positionalScore mirrors the ranking used when no embedding signal is
// available: 1.0 for the first reference decaying linearly to 0.1.
func positionalScore(i, n int) float64 {
	if n <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(n-1)*0.9
}

// cosineSimilarity returns the cosine of the angle between a and b, or
// 0 when either vector is empty or zero-length.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// getJSON performs a GET with rate-limit retry and decodes the response.
func (s *SemanticScholar) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.Config.UserAgent)
	if s.Config.APIKey != "" {
		req.Header.Set("x-api-key", s.Config.APIKey)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("Graph API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Graph API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing Graph API response: %w", err)
	}
	return nil
}

// Graph API JSON structures.
type graphPaper struct {
	PaperID        string          `json:"paperId"`
	CorpusID       int64           `json:"corpusId"`
	Title          string          `json:"title"`
	Abstract       string          `json:"abstract"`
	ReferenceCount int             `json:"referenceCount"`
	Embedding      *graphEmbedding `json:"embedding"`
}

type graphEmbedding struct {
	Model  string    `json:"model"`
	Vector []float64 `json:"vector"`
}

type graphReferences struct {
	Offset int                   `json:"offset"`
	Data   []graphReferenceEntry `json:"data"`
}

type graphReferenceEntry struct {
	CitedPaper *graphPaper `json:"citedPaper"`
}

func (p *graphPaper) toRecord() *types.PaperRecord {
	rec := &types.PaperRecord{
		ID:             p.PaperID,
		CorpusID:       p.CorpusID,
		Title:          p.Title,
		Abstract:       p.Abstract,
		ReferenceCount: p.ReferenceCount,
	}
	if p.Embedding != nil {
		rec.Embedding = p.Embedding.Vector
	}
	return rec
}
