// Package app contains the Order-Book Cache's public contract and its
// concrete in-memory implementation. The feed fusion layer (infra) is the
// sole writer; the evaluator and status surface are readers.
package app

import (
	"time"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
)

// FetchStatus reports why Fetch did not return a fresh book.
type FetchStatus int

const (
	// FetchOK means the returned OrderBook is within the requested
	// freshness budget.
	FetchOK FetchStatus = iota
	// FetchStale means a book exists for the pair but it is older than
	// the freshness budget.
	FetchStale
	// FetchMissing means the pair has never been populated.
	FetchMissing
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchStale:
		return "stale"
	case FetchMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// OrderBookCache is the contract the evaluator and status surface program
// against; business/market/infra.Feed is the only writer.
type OrderBookCache interface {
	// Fetch returns the cached book for pair if its age is within
	// freshnessBudget, else FetchStale; FetchMissing if the pair was never
	// populated. A crossed book is always reported as FetchStale
	// regardless of age, since it is invalidated until the next snapshot.
	Fetch(pair domain.Pair, freshnessBudget time.Duration) (domain.OrderBook, FetchStatus)

	// FetchOrStaleFallback returns whatever is cached, however old, for
	// display paths only. Callers on the execution path must use Fetch.
	FetchOrStaleFallback(pair domain.Pair) (domain.OrderBook, bool)
}
