// Package app contains the Portfolio Cache's public contract and its
// concrete implementation. business/portfolio/infra's periodic sync task
// is the sole writer.
package app

import (
	"sync"
	"time"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
)

// Cache is the contract the Risk Gate and status surface program against.
type Cache interface {
	// Snapshot returns the current balances, or (zero, false) in
	// public-only mode where no credentials were configured and balances
	// were never synced.
	Snapshot() (domain.Portfolio, bool)
}

// SyncedCache is the concrete, thread-safe Portfolio Cache.
type SyncedCache struct {
	mu         sync.RWMutex
	portfolio  domain.Portfolio
	hasSynced  bool
	publicOnly bool
}

// NewSyncedCache returns an empty cache. publicOnly pins Snapshot to always
// report absent, so a public-only gateway never attempts a balance call.
func NewSyncedCache(publicOnly bool) *SyncedCache {
	return &SyncedCache{publicOnly: publicOnly}
}

// Snapshot implements Cache.
func (c *SyncedCache) Snapshot() (domain.Portfolio, bool) {
	if c.publicOnly {
		return domain.Portfolio{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasSynced {
		return domain.Portfolio{}, false
	}
	return c.portfolio, true
}

// Update replaces the cached snapshot; the sole mutator, called by the
// periodic balance sync task and by order-fill reconciliation.
func (c *SyncedCache) Update(p domain.Portfolio) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portfolio = p
	c.hasSynced = true
}

// LastSyncAge reports how long ago the cache was last updated, for the
// status surface; zero value (epoch) if never synced.
func (c *SyncedCache) LastSyncAge(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasSynced {
		return 0
	}
	return now.Sub(c.portfolio.Timestamp)
}
