// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package loop

import "github.com/pdiddy/ideation-engine/pkg/types"

// History is the bounded round memory for one run. When the cap is
// reached the oldest entry is evicted first.
type History struct {
	cap     int
	entries []types.HistoryEntry
}

// NewHistory returns a history bounded to capacity entries. A
// non-positive capacity defaults to 10.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 10
	}
	return &History{cap: capacity}
}

// Append records a completed round, evicting the oldest entry when full.
func (h *History) Append(e types.HistoryEntry) {
	if len(h.entries) == h.cap {
		h.entries = append(h.entries[:0], h.entries[1:]...)
		h.entries = h.entries[:h.cap-1]
	}
	h.entries = append(h.entries, e)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// All returns the retained entries, oldest first. The slice is a copy.
func (h *History) All() []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Last returns the most recent entry.
func (h *History) Last() (types.HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Older returns every retained entry except the most recent, oldest
// first. The slice is a copy.
func (h *History) Older() []types.HistoryEntry {
	if len(h.entries) <= 1 {
		return nil
	}
	out := make([]types.HistoryEntry, len(h.entries)-1)
	copy(out, h.entries[:len(h.entries)-1])
	return out
}

// Best returns the entry with the highest aggregate score. Ties go to
// the most recent entry.
func (h *History) Best() (types.HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	best := h.entries[0]
	for _, e := range h.entries[1:] {
		if e.Scorecard.Aggregate() >= best.Scorecard.Aggregate() {
			best = e
		}
	}
	return best, true
}
