// Package execution implements the Executor bounded context: turns an
// accepted opportunity into a sequenced chain of limit orders.
package execution

import (
	"context"

	"github.com/shopspring/decimal"

	exchangeDI "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/di"
	executionapp "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/app"
	executionDI "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices builds the Executor from configuration and the Exchange
// Gateway.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.ExecutorToken, func(sr di.ServiceRegistry) *executionapp.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		gw := exchangeDI.GetGateway(sr)

		execCfg := executionapp.Config{
			SlippageTolerance: decimal.NewFromFloat(cfg.Trading.SlippageTolerance),
			QuantityStep:      decimal.NewFromFloat(cfg.Trading.QuantityStep),
			PriceStep:         decimal.NewFromFloat(cfg.Trading.PriceStep),
			DustThreshold:     decimal.NewFromFloat(cfg.Trading.DustThreshold),
			OrderTimeout:      cfg.Trading.OrderTimeout(),
		}
		return executionapp.New(gw, execCfg, log)
	})
	return nil
}

// Startup has nothing to launch: the Executor is invoked synchronously by
// the controller.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "execution module started")
	return nil
}
