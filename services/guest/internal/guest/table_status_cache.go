package guest

import (
	"sync"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
)

// TableStatusCache remembers status changes pushed by the floor so table
// listings are not stale while the backend response is still cached.
type TableStatusCache struct {
	mu     sync.RWMutex
	state  map[string]tableStatusEntry
	maxAge time.Duration
	now    func() time.Time
}

type tableStatusEntry struct {
	status    string
	updatedAt time.Time
}

func NewTableStatusCache(maxAge time.Duration) *TableStatusCache {
	if maxAge <= 0 {
		maxAge = DefaultStatusCacheAge
	}
	return &TableStatusCache{
		state:  make(map[string]tableStatusEntry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (c *TableStatusCache) Set(tableID, status string) {
	parsed, ok := tablestatus.Parse(status)
	if !ok || tableID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[tableID] = tableStatusEntry{status: parsed.Code(), updatedAt: c.now()}
}

func (c *TableStatusCache) Get(tableID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.state[tableID]
	if !ok || c.now().Sub(entry.updatedAt) > c.maxAge {
		return "", false
	}
	return entry.status, true
}

// Overlay returns a copy of tables with fresh pushed statuses applied.
func (c *TableStatusCache) Overlay(tables []backend.Table) []backend.Table {
	out := make([]backend.Table, len(tables))
	copy(out, tables)
	for i := range out {
		if status, ok := c.Get(out[i].ID); ok {
			out[i].Status = status
		}
	}
	return out
}
