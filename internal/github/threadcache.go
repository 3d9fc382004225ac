package github

import (
	"sync"
	"time"
)

// ThreadStatusEntry is a memoized thread resolution state.
type ThreadStatusEntry struct {
	Resolved    bool
	LastChecked time.Time
}

// ThreadStatusCache memoizes thread resolution states for one RepoClient.
// It holds no network logic: callers query the remote on a miss and record the answer.
type ThreadStatusCache struct {
	mu      sync.Mutex
	entries map[string]ThreadStatusEntry
	now     func() time.Time
}

// NewThreadStatusCache returns an empty cache.
func NewThreadStatusCache() *ThreadStatusCache {
	return &ThreadStatusCache{
		entries: make(map[string]ThreadStatusEntry),
		now:     time.Now,
	}
}

// IsResolved returns the cached state and whether there was an entry.
func (c *ThreadStatusCache) IsResolved(threadID string) (resolved, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[threadID]
	return entry.Resolved, ok
}

// Entry returns the full cached entry.
func (c *ThreadStatusCache) Entry(threadID string) (ThreadStatusEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[threadID]
	return entry, ok
}

// Record stores a state read from the remote, negative results included.
func (c *ThreadStatusCache) Record(threadID string, resolved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[threadID] = ThreadStatusEntry{Resolved: resolved, LastChecked: c.now()}
}

// RecordResolved marks threadID as resolved.
func (c *ThreadStatusCache) RecordResolved(threadID string) {
	c.Record(threadID, true)
}

// Invalidate removes the entry for threadID.
func (c *ThreadStatusCache) Invalidate(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, threadID)
}

// Len returns the number of entries.
func (c *ThreadStatusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
