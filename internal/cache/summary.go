package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

// SummaryLoader recomputes a group's debt summary from its history.
type SummaryLoader func(ctx context.Context, groupID core.GroupID) (ledger.DebtSummary, error)

// SummaryCache memoizes debt summaries per group. Concurrent misses for the
// same group share one load. A summary loaded across an Invalidate is
// returned to its callers but not stored.
//
// Cached summaries are shared between callers and must not be mutated.
type SummaryCache struct {
	entries *LRUCache[core.GroupID, ledger.DebtSummary]
	group   singleflight.Group

	mu          sync.Mutex
	generations map[core.GroupID]uint64
}

func NewSummaryCache(size int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		entries:     NewLRUCache[core.GroupID, ledger.DebtSummary](size, ttl),
		generations: make(map[core.GroupID]uint64),
	}
}

// Get returns the cached summary for groupID or loads it.
func (c *SummaryCache) Get(ctx context.Context, groupID core.GroupID, load SummaryLoader) (ledger.DebtSummary, error) {
	if s, ok := c.entries.Get(groupID); ok {
		return s, nil
	}

	ch := c.group.DoChan(string(groupID), func() (any, error) {
		gen := c.generation(groupID)

		// Detached so one caller giving up does not fail the others.
		s, err := load(context.WithoutCancel(ctx), groupID)
		if err != nil {
			return ledger.DebtSummary{}, err
		}

		c.mu.Lock()
		if c.generations[groupID] == gen {
			c.entries.Set(groupID, s)
		}
		c.mu.Unlock()
		return s, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return ledger.DebtSummary{}, res.Err
		}
		return res.Val.(ledger.DebtSummary), nil
	case <-ctx.Done():
		return ledger.DebtSummary{}, ctx.Err()
	}
}

// Invalidate drops the cached summary of a group after its history changed.
func (c *SummaryCache) Invalidate(groupID core.GroupID) {
	c.mu.Lock()
	c.generations[groupID]++
	c.entries.Delete(groupID)
	c.mu.Unlock()

	c.group.Forget(string(groupID))
}

func (c *SummaryCache) generation(groupID core.GroupID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[groupID]
}

func (c *SummaryCache) CleanExpired() int {
	return c.entries.CleanExpired()
}

func (c *SummaryCache) Size() int {
	return c.entries.Size()
}
