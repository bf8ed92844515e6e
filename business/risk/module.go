// Package risk implements the Risk Gate bounded context: the stateful
// accept/reject/size checkpoint between the evaluator and the executor.
package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	riskapp "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/app"
	riskDI "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the risk bounded context.
type Module struct{}

// RegisterServices builds the Risk Gate from configuration.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, riskDI.GateToken, func(sr di.ServiceRegistry) *riskapp.Gate {
		cfg := sr.Get("config").(*config.Config)
		gateCfg := riskapp.Config{
			MaxPositionRatio:     decimal.NewFromFloat(cfg.Risk.MaxPositionRatio),
			MaxSingleTradeRatio:  decimal.NewFromFloat(cfg.Risk.MaxSingleTradeRatio),
			MinArbitrageInterval: cfg.Risk.MinArbitrageInterval(),
			MaxDailyTrades:       cfg.Risk.MaxDailyTrades,
			MaxDailyLossRatio:    decimal.NewFromFloat(cfg.Risk.MaxDailyLossRatio),
			StopLossRatio:        decimal.NewFromFloat(cfg.Risk.StopLossRatio),
			MinTradeAmount:       decimal.NewFromFloat(cfg.Trading.MinTradeAmount),
			MaxOpportunityAge:    cfg.Trading.OpportunityMaxAge(),
		}
		return riskapp.New(gateCfg, time.Now())
	})
	return nil
}

// Startup has nothing to launch: the Risk Gate is called synchronously by
// the controller on every tick.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "risk module started")
	return nil
}
