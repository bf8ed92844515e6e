// Package di contains dependency injection tokens for the portfolio context.
package di

import (
	portfolioapp "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/app"
	portfolioinfra "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/infra"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// Token names for services this module registers.
const (
	CacheToken  = "portfolio.Cache"
	SyncerToken = "portfolio.Syncer"
)

// GetCache resolves the registered Portfolio Cache.
func GetCache(sr di.ServiceRegistry) portfolioapp.Cache {
	return di.Get[portfolioapp.Cache](sr, CacheToken)
}

// GetConcreteCache resolves the registered *app.SyncedCache directly.
func GetConcreteCache(sr di.ServiceRegistry) *portfolioapp.SyncedCache {
	return di.Get[*portfolioapp.SyncedCache](sr, CacheToken)
}

// GetSyncer resolves the registered balance Syncer, used by the controller
// to force a refresh after an execution.
func GetSyncer(sr di.ServiceRegistry) *portfolioinfra.Syncer {
	return di.Get[*portfolioinfra.Syncer](sr, SyncerToken)
}
