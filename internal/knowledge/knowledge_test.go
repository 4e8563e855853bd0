package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := types.KnowledgeConfig{
		KnowledgeDir: filepath.Join(tmpDir, "knowledge"),
		MaxEntities:  30,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func writeCorpus(t *testing.T, tmpDir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(tmpDir, "corpus.jsonl")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// sampleCorpus holds four papers: "attention" appears in three of them,
// "sparse attention" co-occurs with it twice, "dropout" co-occurs only
// with "transformers" once.
func sampleCorpus(t *testing.T, tmpDir string) string {
	t.Helper()
	return writeCorpus(t, tmpDir,
		`{"corpusid": 1, "knowledge": {"attention": 2, "transformers": 1}}`,
		`{"corpusid": 2, "knowledge": {"attention": 1, "sparse attention": 3}}`,
		`{"corpusid": 3, "knowledge": {"attention": 1, "sparse attention": 1}}`,
		`{"corpusid": 4, "knowledge": {"transformers": 1, "dropout": 1}}`,
	)
}

func ingestSample(t *testing.T, store *Store, tmpDir string) {
	t.Helper()
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), sampleCorpus(t, tmpDir), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 0 {
		t.Fatalf("Failed = %d, want 0; output: %s", summary.Failed, buf.String())
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testStore(t)

	var count int
	err := store.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'paper_entities'`,
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Error("paper_entities table does not exist")
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	_, tmpDir := testStore(t)

	dbPath := filepath.Join(tmpDir, "knowledge", indexDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- ingest tests ---

func TestIngest(t *testing.T) {
	store, tmpDir := testStore(t)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), sampleCorpus(t, tmpDir), &buf)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Indexed != 4 {
		t.Errorf("Indexed = %d, want 4", summary.Indexed)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}
	if !strings.Contains(buf.String(), "indexed: 4") {
		t.Errorf("output should contain 'indexed: 4': %s", buf.String())
	}

	var rows int
	if err := store.db.QueryRow(`SELECT count(*) FROM paper_entities`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 8 {
		t.Errorf("stored %d entity rows, want 8", rows)
	}
}

func TestIngestReplacesExisting(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	// Re-ingest paper 1 with a different entity set.
	path := writeCorpus(t, tmpDir,
		`{"corpusid": 1, "knowledge": {"graph neural networks": 5}}`,
	)
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), path, &buf)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", summary.Replaced)
	}
	if !strings.Contains(buf.String(), "replaced") {
		t.Errorf("output should contain 'replaced': %s", buf.String())
	}

	var rows int
	err = store.db.QueryRow(
		`SELECT count(*) FROM paper_entities WHERE corpus_id = 1`,
	).Scan(&rows)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("paper 1 has %d entity rows after replace, want 1", rows)
	}
}

func TestIngestMalformedLine(t *testing.T) {
	store, tmpDir := testStore(t)

	path := writeCorpus(t, tmpDir,
		`{"corpusid": 1, "knowledge": {"attention": 1}}`,
		`not json at all`,
		`{"corpusid": 2, "knowledge": {}}`,
		``,
		`{"corpusid": 3, "knowledge": {"dropout": 2}}`,
	)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), path, &buf)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", summary.Indexed)
	}
	// The unparseable line and the empty record both fail; the blank
	// line is skipped silently.
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2; output: %s", summary.Failed, buf.String())
	}
}

func TestIngestMissingFile(t *testing.T) {
	store, tmpDir := testStore(t)

	var buf strings.Builder
	_, err := store.Ingest(context.Background(), filepath.Join(tmpDir, "nope.jsonl"), &buf)
	if err == nil {
		t.Fatal("expected error for missing corpus file")
	}
}

func TestIngestSummaryTotal(t *testing.T) {
	s := IngestSummary{Indexed: 2, Replaced: 1, Failed: 3}
	if s.Total() != 6 {
		t.Errorf("Total() = %d, want 6", s.Total())
	}
}

// --- retrieval tests ---

func TestRelevantEntities(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	entities, err := store.RelevantEntities(context.Background(), []int64{1}, 30)
	if err != nil {
		t.Fatal(err)
	}

	// Candidates are every entity sharing a paper with paper 1's
	// entities: both locals plus "sparse attention" and "dropout".
	if len(entities) != 4 {
		t.Fatalf("got %d entities, want 4: %+v", len(entities), entities)
	}

	byName := make(map[string]int)
	for i, e := range entities {
		byName[e.Name] = i
	}
	for _, name := range []string{"attention", "transformers", "sparse attention", "dropout"} {
		if _, ok := byName[name]; !ok {
			t.Errorf("missing candidate %q", name)
		}
	}

	// "sparse attention" co-occurs strongly with the dominant local
	// entity; "dropout" only with the minor one. The scorer must rank
	// them accordingly.
	if byName["sparse attention"] > byName["dropout"] {
		t.Errorf("sparse attention ranked %d, below dropout at %d",
			byName["sparse attention"], byName["dropout"])
	}
	if entities[0].Name != "sparse attention" {
		t.Errorf("top entity = %q, want %q", entities[0].Name, "sparse attention")
	}

	// Scores are descending.
	for i := 1; i < len(entities); i++ {
		if entities[i].Weight > entities[i-1].Weight {
			t.Errorf("entities not sorted by weight at %d: %f > %f",
				i, entities[i].Weight, entities[i-1].Weight)
		}
	}
}

func TestRelevantEntitiesMetadata(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	entities, err := store.RelevantEntities(context.Background(), []int64{1}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) == 0 {
		t.Fatal("expected entities")
	}

	for _, e := range entities {
		if e.Type != "concept" {
			t.Errorf("entity %q type = %q, want concept", e.Name, e.Type)
		}
		if len(e.CoOccurring) == 0 {
			t.Errorf("entity %q has no co-occurring neighbors", e.Name)
		}
	}
}

func TestRelevantEntitiesCap(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	entities, err := store.RelevantEntities(context.Background(), []int64{1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	if entities[0].Name != "sparse attention" {
		t.Errorf("top entity = %q, want %q", entities[0].Name, "sparse attention")
	}
}

func TestRelevantEntitiesMultiplePapers(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	// Unknown ids contribute nothing but do not fail the query.
	entities, err := store.RelevantEntities(context.Background(), []int64{1, 2, 999}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) == 0 {
		t.Fatal("expected entities for known papers")
	}
}

func TestRelevantEntitiesUnknownPaper(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	entities, err := store.RelevantEntities(context.Background(), []int64{999}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 0 {
		t.Errorf("got %d entities for unknown paper, want 0", len(entities))
	}
}

func TestRelevantEntitiesEmptyStore(t *testing.T) {
	store, _ := testStore(t)

	entities, err := store.RelevantEntities(context.Background(), []int64{1}, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 0 {
		t.Errorf("got %d entities from empty store, want 0", len(entities))
	}
}

func TestRelevantEntitiesDeterministic(t *testing.T) {
	store, tmpDir := testStore(t)
	ingestSample(t, store, tmpDir)

	first, err := store.RelevantEntities(context.Background(), []int64{1}, 30)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := store.RelevantEntities(context.Background(), []int64{1}, 30)
		if err != nil {
			t.Fatal(err)
		}
		for j := range first {
			if again[j].Name != first[j].Name {
				t.Fatalf("run %d: entity %d = %q, want %q", i, j, again[j].Name, first[j].Name)
			}
		}
	}
}

// --- scoring helpers ---

func TestStrongestNeighbors(t *testing.T) {
	co := map[string]float64{"a": 5, "b": 3, "c": 1, "d": 4}

	kept := strongestNeighbors(co, 2)
	if len(kept) != 2 {
		t.Fatalf("kept %d neighbors, want 2", len(kept))
	}
	if kept["a"] != 5 || kept["d"] != 4 {
		t.Errorf("kept = %v, want a and d", kept)
	}

	all := strongestNeighbors(co, 10)
	if len(all) != 4 {
		t.Errorf("kept %d neighbors, want all 4", len(all))
	}
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{1: "?", 3: "?,?,?"} {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}
