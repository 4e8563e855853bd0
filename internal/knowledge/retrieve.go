// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// RelevantEntities ranks corpus entities by relevance to the papers
// identified by corpusIDs and returns the top max (or the store default
// when max <= 0). A candidate is any entity that co-occurs with an
// entity of the local papers; candidates are scored by co-occurrence
// log-likelihood against the local entity multiset plus a log prior.
// Unknown corpus ids contribute nothing; with no local entities the
// result is empty. Ties are broken by entity name for determinism.
func (s *Store) RelevantEntities(ctx context.Context, corpusIDs []int64, max int) ([]types.Entity, error) {
	if max <= 0 {
		max = s.maxEntities
	}
	if len(corpusIDs) == 0 {
		return nil, nil
	}

	local, err := s.localCounts(ctx, corpusIDs)
	if err != nil {
		return nil, err
	}
	if len(local) == 0 {
		return nil, nil
	}

	localNames := sortedKeys(local)

	pairs, err := s.pairCounts(ctx, localNames)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	candidates := sortedKeys2(pairs)

	rowTotals, err := s.coOccurrenceTotals(ctx, candidates)
	if err != nil {
		return nil, err
	}
	priors, totalCount, err := s.priorCounts(ctx, candidates)
	if err != nil {
		return nil, err
	}

	entities := make([]types.Entity, 0, len(candidates))
	for _, cand := range candidates {
		score := scoreCandidate(pairs[cand], rowTotals[cand], local)
		score += math.Log2(math.Max(probFloor, priors[cand]/totalCount))

		entities = append(entities, types.Entity{
			Name:        cand,
			Type:        "concept",
			Weight:      score,
			CoOccurring: strongestNeighbors(pairs[cand], coOccurringKept),
		})
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Weight != entities[j].Weight {
			return entities[i].Weight > entities[j].Weight
		}
		return entities[i].Name < entities[j].Name
	})

	if len(entities) > max {
		entities = entities[:max]
	}
	return entities, nil
}

// scoreCandidate sums, over every local entity occurrence, the log
// conditional probability of that occurrence given the candidate. The
// conditional is the candidate's co-occurrence count with the local
// entity normalized by the candidate's total co-occurrence mass.
func scoreCandidate(coCounts map[string]float64, rowTotal float64, local map[string]float64) float64 {
	var score float64
	for name, weight := range local {
		p := (coCounts[name] + probFloor) / (rowTotal + probFloor)
		score += weight * math.Log2(math.Max(probFloor, p))
	}
	return score
}

// localCounts returns the summed entity counts across the given papers.
func (s *Store) localCounts(ctx context.Context, corpusIDs []int64) (map[string]float64, error) {
	args := make([]any, len(corpusIDs))
	for i, id := range corpusIDs {
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT entity, SUM(count) FROM paper_entities
		 WHERE corpus_id IN (%s) GROUP BY entity`,
		placeholders(len(corpusIDs)))

	return s.queryCounts(ctx, query, args)
}

// pairCounts returns, for every entity sharing a paper with a local
// entity, its co-occurrence counts against the local entities.
func (s *Store) pairCounts(ctx context.Context, localNames []string) (map[string]map[string]float64, error) {
	args := make([]any, len(localNames))
	for i, name := range localNames {
		args[i] = name
	}

	query := fmt.Sprintf(
		`SELECT a.entity, b.entity, SUM(b.count)
		 FROM paper_entities a
		 JOIN paper_entities b ON a.corpus_id = b.corpus_id AND a.entity <> b.entity
		 WHERE b.entity IN (%s)
		 GROUP BY a.entity, b.entity`,
		placeholders(len(localNames)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying co-occurrence pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]map[string]float64)
	for rows.Next() {
		var cand, local string
		var count float64
		if err := rows.Scan(&cand, &local, &count); err != nil {
			return nil, fmt.Errorf("scanning pair row: %w", err)
		}
		if pairs[cand] == nil {
			pairs[cand] = make(map[string]float64)
		}
		pairs[cand][local] = count
	}
	return pairs, rows.Err()
}

// coOccurrenceTotals returns each candidate's total co-occurrence mass
// across the whole corpus, the normalizer for conditional probabilities.
func (s *Store) coOccurrenceTotals(ctx context.Context, candidates []string) (map[string]float64, error) {
	args := make([]any, len(candidates))
	for i, name := range candidates {
		args[i] = name
	}

	query := fmt.Sprintf(
		`SELECT a.entity, SUM(b.count)
		 FROM paper_entities a
		 JOIN paper_entities b ON a.corpus_id = b.corpus_id AND a.entity <> b.entity
		 WHERE a.entity IN (%s)
		 GROUP BY a.entity`,
		placeholders(len(candidates)))

	return s.queryCounts(ctx, query, args)
}

// priorCounts returns each candidate's marginal count and the corpus
// total, for the log-prior term.
func (s *Store) priorCounts(ctx context.Context, candidates []string) (map[string]float64, float64, error) {
	args := make([]any, len(candidates))
	for i, name := range candidates {
		args[i] = name
	}

	query := fmt.Sprintf(
		`SELECT entity, SUM(count) FROM paper_entities
		 WHERE entity IN (%s) GROUP BY entity`,
		placeholders(len(candidates)))

	priors, err := s.queryCounts(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}

	var total sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT SUM(count) FROM paper_entities`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("querying corpus total: %w", err)
	}
	if !total.Valid || total.Float64 <= 0 {
		return nil, 0, fmt.Errorf("corpus is empty")
	}

	return priors, total.Float64, nil
}

func (s *Store) queryCounts(ctx context.Context, query string, args []any) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]float64)
	for rows.Next() {
		var name string
		var count float64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// strongestNeighbors keeps the k highest-count co-occurring entities.
func strongestNeighbors(coCounts map[string]float64, k int) map[string]float64 {
	if len(coCounts) <= k {
		out := make(map[string]float64, len(coCounts))
		for name, count := range coCounts {
			out[name] = count
		}
		return out
	}

	names := sortedKeys(coCounts)
	sort.SliceStable(names, func(i, j int) bool {
		return coCounts[names[i]] > coCounts[names[j]]
	})

	out := make(map[string]float64, k)
	for _, name := range names[:k] {
		out[name] = coCounts[name]
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys2(m map[string]map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
