// Package portfolio implements the Portfolio Cache bounded context.
package portfolio

import (
	"context"

	exchangeDI "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/di"
	portfolioapp "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/app"
	portfolioDI "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/infra"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the portfolio bounded context.
type Module struct{}

// RegisterServices registers the Portfolio Cache and its Syncer.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, portfolioDI.CacheToken, func(sr di.ServiceRegistry) *portfolioapp.SyncedCache {
		gw := exchangeDI.GetGateway(sr)
		return portfolioapp.NewSyncedCache(gw.PublicOnly())
	})

	di.RegisterToken(c, portfolioDI.SyncerToken, func(sr di.ServiceRegistry) *infra.Syncer {
		gw := exchangeDI.GetGateway(sr)
		cache := portfolioDI.GetConcreteCache(sr)
		log := sr.Get("logger").(logger.LoggerInterface)
		return infra.NewSyncer(gw, cache, log)
	})
	return nil
}

// Startup launches the balance sync loop in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	syncer := portfolioDI.GetSyncer(mono.Services())
	go syncer.Run(ctx)
	mono.Logger().Info(ctx, "portfolio module started")
	return nil
}
