// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadPaperIDs reads target paper identifiers from a JSONL file. Each
// line may be a JSON object carrying one of the common id keys, a JSON
// string, or a bare id. Numeric ids are normalized to the graph API's
// "CorpusId:" form and arXiv ids to its "ARXIV:" form.
func LoadPaperIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening paper list %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, err := parsePaperID(line)
		if err != nil {
			return nil, fmt.Errorf("paper list %s line %d: %w", path, lineNo, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading paper list %s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("paper list %s contains no identifiers", path)
	}
	return ids, nil
}

func parsePaperID(line string) (string, error) {
	if strings.HasPrefix(line, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return "", fmt.Errorf("parsing record: %w", err)
		}
		return idFromRecord(obj)
	}

	var quoted string
	if err := json.Unmarshal([]byte(line), &quoted); err == nil {
		return normalizeID(quoted), nil
	}
	return normalizeID(line), nil
}

func idFromRecord(obj map[string]any) (string, error) {
	for _, key := range []string{"corpusid", "corpus_id", "corpusId"} {
		if v, ok := obj[key]; ok {
			return fmt.Sprintf("CorpusId:%v", jsonNumber(v)), nil
		}
	}
	for _, key := range []string{"paperId", "paper_id", "id"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return normalizeID(v), nil
		}
	}
	for _, key := range []string{"arxivId", "arxiv_id"} {
		if v, ok := obj[key].(string); ok && v != "" {
			if strings.HasPrefix(strings.ToUpper(v), "ARXIV:") {
				return v, nil
			}
			return "ARXIV:" + v, nil
		}
	}
	return "", fmt.Errorf("record carries no recognized paper id key")
}

// normalizeID maps bare numeric ids onto the CorpusId form.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id != "" && strings.IndexFunc(id, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
		return "CorpusId:" + id
	}
	return id
}

// jsonNumber renders a decoded JSON number without a float exponent.
func jsonNumber(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%v", v)
}
