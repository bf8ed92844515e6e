// Package market implements the Order-Book Cache and WebSocket+REST feed
// fusion bounded context.
package market

import (
	"context"

	exchangeDI "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/di"
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	marketDI "github.com/ZefanHu/triangular-arbitrage-bot/business/market/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/infra"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers the Order-Book Cache with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.CacheToken, func(sr di.ServiceRegistry) *marketapp.Cache {
		return marketapp.NewCache()
	})
	return nil
}

// Startup resolves the configured paths' distinct pairs and launches the
// feed fusion loop against them in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	gw := exchangeDI.GetGateway(mono.Services())
	cache := marketDI.GetConcreteCache(mono.Services())

	pairs := pairsFromPaths(cfg, log)
	feed := infra.NewFeed(gw, cache, log)

	go func() {
		if err := feed.Run(ctx, pairs); err != nil && ctx.Err() == nil {
			log.Error(ctx, "market feed exited", "error", err.Error())
		}
	}()

	log.Info(ctx, "market module started", "pairs", len(pairs))
	return nil
}

func pairsFromPaths(cfg *config.Config, log logger.LoggerInterface) []domain.Pair {
	seen := make(map[string]domain.Pair)
	for _, path := range cfg.Trading.Paths {
		for _, step := range path.Steps {
			p, err := domain.PairFromCanonical(step.Pair)
			if err != nil {
				log.Warn(context.Background(), "skipping malformed path pair", "pair", step.Pair, "route", path.Route, "error", err.Error())
				continue
			}
			seen[p.ID()] = p
		}
	}
	out := make([]domain.Pair, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}
