package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize is how many transfers History keeps.
const DefaultHistorySize = 200

// History is a bounded in-memory log of transfers, newest first.
type History struct {
	mu      sync.RWMutex
	entries []TransferEntry
	max     int
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max}
}

// Add stores e, assigning an ID and start time if they are unset, and
// returns the stored entry.
func (h *History) Add(e TransferEntry) TransferEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]TransferEntry{e}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	return e
}

// List returns up to limit entries, newest first, optionally filtered by
// table. A limit of zero or less returns everything kept.
func (h *History) List(table string, limit int) []TransferEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]TransferEntry, 0, len(h.entries))
	for _, e := range h.entries {
		if table != "" && e.Table != table {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// Get returns the entry with the given ID.
func (h *History) Get(id string) (TransferEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return TransferEntry{}, false
}

// Len returns the number of entries kept.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
