// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists a paper-entity corpus in SQLite and ranks
// entities by relevance to a set of papers using co-occurrence statistics.
package knowledge

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ideation-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "ideation.db"

	// probFloor keeps log terms finite when a count is zero.
	probFloor = 1e-16

	// coOccurringKept is how many co-occurring neighbors are attached to
	// each retrieved entity.
	coOccurringKept = 5
)

// Store manages the entity corpus SQLite database.
type Store struct {
	db          *sql.DB
	maxEntities int
}

// NewStore opens or creates the corpus database at
// knowledgeDir/index/ideation.db, creating the schema if needed.
func NewStore(cfg types.KnowledgeConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.KnowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxEntities := cfg.MaxEntities
	if maxEntities <= 0 {
		maxEntities = 30
	}

	s := &Store{db: db, maxEntities: maxEntities}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS paper_entities (
			corpus_id INTEGER NOT NULL,
			entity TEXT NOT NULL,
			count REAL NOT NULL,
			PRIMARY KEY (corpus_id, entity)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_entities_entity ON paper_entities(entity)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// corpusRecord is one line of a knowledge JSONL corpus: a paper's corpus
// id and its extracted entities with occurrence counts.
type corpusRecord struct {
	CorpusID  int64              `json:"corpusid"`
	Knowledge map[string]float64 `json:"knowledge"`
}

// IngestSummary holds counts from a corpus ingestion run.
type IngestSummary struct {
	Indexed  int
	Replaced int
	Failed   int
}

// Total returns the number of records processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Replaced + s.Failed
}

// Ingest reads a knowledge JSONL corpus and populates the database. A
// record whose corpus id is already present replaces the stored
// entities. Progress lines are written to w as records are processed.
func (s *Store) Ingest(ctx context.Context, path string, w io.Writer) (IngestSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	defer f.Close()

	var summary IngestSummary

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		var rec corpusRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			fmt.Fprintf(w, "failed   line %d: parse error: %v\n", lineNo, err)
			summary.Failed++
			continue
		}
		if len(rec.Knowledge) == 0 {
			fmt.Fprintf(w, "failed   line %d: record has no entities\n", lineNo)
			summary.Failed++
			continue
		}

		replaced, err := s.ingestRecord(ctx, &rec)
		if err != nil {
			fmt.Fprintf(w, "failed   line %d (corpus %d): %v\n", lineNo, rec.CorpusID, err)
			summary.Failed++
			continue
		}

		if replaced {
			fmt.Fprintf(w, "replaced %d (%d entities)\n", rec.CorpusID, len(rec.Knowledge))
			summary.Replaced++
		} else {
			fmt.Fprintf(w, "indexed  %d (%d entities)\n", rec.CorpusID, len(rec.Knowledge))
			summary.Indexed++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	fmt.Fprintf(w, "\nindexed: %d, replaced: %d, failed: %d\n",
		summary.Indexed, summary.Replaced, summary.Failed)

	return summary, nil
}

func (s *Store) ingestRecord(ctx context.Context, rec *corpusRecord) (replaced bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM paper_entities WHERE corpus_id = ?`, rec.CorpusID,
	).Scan(&existing); err != nil {
		return false, fmt.Errorf("checking existing record: %w", err)
	}
	replaced = existing > 0

	if replaced {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM paper_entities WHERE corpus_id = ?`, rec.CorpusID,
		); err != nil {
			return false, fmt.Errorf("deleting old entities: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO paper_entities (corpus_id, entity, count) VALUES (?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for name, count := range rec.Knowledge {
		if name == "" || count <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, rec.CorpusID, name, count); err != nil {
			return false, fmt.Errorf("inserting entity %q: %w", name, err)
		}
	}

	return replaced, tx.Commit()
}
