// Package di contains dependency injection tokens for the market context.
package di

import (
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// Token names for services this module registers.
const (
	CacheToken = "market.Cache"
)

// GetCache resolves the registered Order-Book Cache.
func GetCache(sr di.ServiceRegistry) marketapp.OrderBookCache {
	return di.Get[marketapp.OrderBookCache](sr, CacheToken)
}

// GetConcreteCache resolves the registered *app.Cache directly, for callers
// (the feed, the di wiring of other modules) that need the mutator methods
// the OrderBookCache read contract does not expose.
func GetConcreteCache(sr di.ServiceRegistry) *marketapp.Cache {
	return di.Get[*marketapp.Cache](sr, CacheToken)
}
