package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
)

const meterName = "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"

type cacheMetrics struct {
	booksCrossed metric.Int64Counter
	staleReads   metric.Int64Counter
}

func newCacheMetrics() *cacheMetrics {
	meter := otel.Meter(meterName)
	m := &cacheMetrics{}
	m.booksCrossed, _ = meter.Int64Counter(
		"orderbook_crossed_total",
		metric.WithDescription("Times a pair's book was detected crossed and invalidated"),
	)
	m.staleReads, _ = meter.Int64Counter(
		"orderbook_stale_reads_total",
		metric.WithDescription("Fetch calls that returned a stale book"),
	)
	return m
}

// Cache is the concrete, thread-safe Order-Book Cache: many concurrent
// readers, a single logical writer (the feed fusion layer) per pair. Each
// pair's book is held behind its own mutex rather than one cache-wide lock,
// so updates to independent pairs never contend.
type Cache struct {
	mu      sync.RWMutex
	books   map[string]*bookEntry
	metrics *cacheMetrics
}

type bookEntry struct {
	mu   sync.RWMutex
	book domain.OrderBook
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		books:   make(map[string]*bookEntry),
		metrics: newCacheMetrics(),
	}
}

func (c *Cache) entry(pair domain.Pair) *bookEntry {
	id := pair.ID()

	c.mu.RLock()
	e, ok := c.books[id]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.books[id]; ok {
		return e
	}
	e = &bookEntry{}
	c.books[id] = e
	return e
}

// Fetch implements OrderBookCache.
func (c *Cache) Fetch(pair domain.Pair, freshnessBudget time.Duration) (domain.OrderBook, FetchStatus) {
	c.mu.RLock()
	e, ok := c.books[pair.ID()]
	c.mu.RUnlock()
	if !ok {
		return domain.OrderBook{}, FetchMissing
	}

	e.mu.RLock()
	book := e.book
	e.mu.RUnlock()

	if book.Timestamp.IsZero() {
		return domain.OrderBook{}, FetchMissing
	}
	if book.Crossed {
		c.metrics.staleReads.Add(context.Background(), 1)
		return book, FetchStale
	}
	if time.Since(book.Timestamp) > freshnessBudget {
		c.metrics.staleReads.Add(context.Background(), 1)
		return book, FetchStale
	}
	return book, FetchOK
}

// FetchOrStaleFallback implements OrderBookCache.
func (c *Cache) FetchOrStaleFallback(pair domain.Pair) (domain.OrderBook, bool) {
	c.mu.RLock()
	e, ok := c.books[pair.ID()]
	c.mu.RUnlock()
	if !ok {
		return domain.OrderBook{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.book.Timestamp.IsZero() {
		return domain.OrderBook{}, false
	}
	return e.book, true
}

// ApplySnapshot is the sole mutator for a fresh snapshot (OnIncrementalUpdate
// with a snapshot payload, per the spec's naming).
func (c *Cache) ApplySnapshot(pair domain.Pair, bids, asks []domain.Level, at time.Time) {
	e := c.entry(pair)
	next := domain.ApplySnapshot(pair, bids, asks, at)

	e.mu.Lock()
	e.book = next
	e.mu.Unlock()
}

// ApplyDelta is the sole mutator for an incremental update.
func (c *Cache) ApplyDelta(pair domain.Pair, side domain.Side, updates []domain.Level, at time.Time) {
	e := c.entry(pair)

	e.mu.Lock()
	wasCrossed := e.book.Crossed
	e.book = e.book.ApplyDelta(updates, side, at)
	nowCrossed := e.book.Crossed
	e.mu.Unlock()

	if nowCrossed && !wasCrossed {
		c.metrics.booksCrossed.Add(context.Background(), 1)
	}
}

// MarkAllStale invalidates every cached book's freshness without discarding
// its contents, used on WebSocket disconnect: the next snapshot per pair
// will restore it.
func (c *Cache) MarkAllStale() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	epoch := time.Time{}.Add(time.Nanosecond) // earliest non-zero time: always "stale"
	for _, e := range c.books {
		e.mu.Lock()
		if !e.book.Timestamp.IsZero() {
			e.book.Timestamp = epoch
		}
		e.mu.Unlock()
	}
}

// Pairs returns the set of pairs the cache has ever seen data for.
func (c *Cache) Pairs() []domain.Pair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pairs := make([]domain.Pair, 0, len(c.books))
	for _, e := range c.books {
		e.mu.RLock()
		p := e.book.Pair
		e.mu.RUnlock()
		pairs = append(pairs, p)
	}
	return pairs
}
