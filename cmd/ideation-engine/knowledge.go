// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ideation-engine/internal/knowledge"
	"github.com/pdiddy/ideation-engine/pkg/types"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the local entity knowledge base (ingest, entities)",
	Long: `Knowledge manages a local SQLite entity store built from per-paper
entity extractions. Use subcommands to ingest a corpus file or to query
the entities most relevant to a set of papers.`,
}

// --- ingest subcommand ---

var knowledgeIngestCmd = &cobra.Command{
	Use:   "ingest [corpus.jsonl]",
	Short: "Ingest a per-paper entity corpus into the knowledge base",
	Long: `Ingest reads a JSONL corpus where each line carries a corpus id and its
entity counts, and indexes it into the SQLite store. Papers already in
the store are replaced; malformed lines are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runKnowledgeIngest,
}

func runKnowledgeIngest(cmd *cobra.Command, args []string) error {
	store, err := knowledge.NewStore(knowledgeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), args[0], os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d line(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- entities subcommand ---

var knowledgeEntitiesCmd = &cobra.Command{
	Use:   "entities [corpus-ids...]",
	Short: "Query the entities most relevant to a set of papers",
	Long: `Entities scores every entity co-occurring with the given papers'
entities and prints the strongest, highest score first. Corpus ids are
the numeric Semantic Scholar corpus identifiers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKnowledgeEntities,
}

func runKnowledgeEntities(cmd *cobra.Command, args []string) error {
	corpusIDs := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "CorpusId:"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid corpus id %q: %w", arg, err)
		}
		corpusIDs = append(corpusIDs, id)
	}

	cfg := knowledgeConfig(cmd)
	store, err := knowledge.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entities, err := store.RelevantEntities(context.Background(), corpusIDs, cfg.MaxEntities)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatEntitiesOutput(entities, jsonOutput)
}

func formatEntitiesOutput(entities []types.Entity, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	}

	if len(entities) == 0 {
		fmt.Println("No entities found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-40s  %-10s  %s\n", "Rank", "Entity", "Score", "Co-occurring")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))

	for i, e := range entities {
		name := e.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		neighbors := make([]string, 0, len(e.CoOccurring))
		for n := range e.CoOccurring {
			neighbors = append(neighbors, n)
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-40s  %-10.2f  %s\n",
			i+1, name, e.Weight, strings.Join(neighbors, ", "))
	}

	fmt.Fprintf(os.Stdout, "\n%d entities\n", len(entities))
	return nil
}

// --- shared helpers ---

func knowledgeConfig(cmd *cobra.Command) types.KnowledgeConfig {
	knowledgeDir, _ := cmd.Flags().GetString("knowledge-dir")
	if knowledgeDir == "" {
		knowledgeDir = "knowledge"
	}
	maxEntities, _ := cmd.Flags().GetInt("max-entities")
	if maxEntities <= 0 {
		maxEntities = 30
	}

	return types.KnowledgeConfig{
		KnowledgeDir: knowledgeDir,
		MaxEntities:  maxEntities,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	knowledgeCmd.PersistentFlags().String("knowledge-dir", "knowledge", "base directory for the knowledge base (contains index/)")
	knowledgeCmd.PersistentFlags().Int("max-entities", 30, "maximum number of entities returned by queries")

	knowledgeEntitiesCmd.Flags().Bool("json", false, "output entities as JSON")

	knowledgeCmd.AddCommand(knowledgeIngestCmd)
	knowledgeCmd.AddCommand(knowledgeEntitiesCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
