// Package control implements the Controller bounded context: the scan/act
// loop composing every other context into one cooperative task.
package control

import (
	"context"

	arbitrage "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage"
	arbitrageDI "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/di"
	controllerapp "github.com/ZefanHu/triangular-arbitrage-bot/business/control/app"
	controlDI "github.com/ZefanHu/triangular-arbitrage-bot/business/control/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/control/infra"
	exchangeDI "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/di"
	executionDI "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/di"
	marketDI "github.com/ZefanHu/triangular-arbitrage-bot/business/market/di"
	portfolioDI "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/di"
	riskDI "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/tradelog"
)

// Module implements the control bounded context. It must register last: its
// factory pulls the Gateway, Cache, Portfolio, Arbitrage, Risk, and Execution
// services every other module registers.
type Module struct{}

// RegisterServices wires the Controller from every other context's
// registered services, plus a reporter and trade log chosen by run mode.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, controlDI.ControllerToken, func(sr di.ServiceRegistry) *controllerapp.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		paths, err := arbitrage.PathsFromConfig(cfg)
		if err != nil {
			panic("control: invalid arbitrage paths: " + err.Error())
		}

		tl, err := tradelog.Open(cfg.App.TradeLogFile)
		if err != nil {
			panic("control: failed to open trade log: " + err.Error())
		}

		var reporter controllerapp.Reporter = infra.NewConsoleReporter()
		if cfg.App.Mode == "auto" {
			reporter = infra.NewTUIReporter()
		}

		gw := exchangeDI.GetGateway(sr)

		return controllerapp.New(
			controllerapp.Config{
				TickInterval:   cfg.Trading.MonitorInterval(),
				TradingEnabled: cfg.App.Mode != "monitor",
			},
			controllerapp.Deps{
				Cache:      marketDI.GetConcreteCache(sr),
				Portfolio:  portfolioDI.GetConcreteCache(sr),
				Syncer:     portfolioDI.GetSyncer(sr),
				Paths:      paths,
				EvalParams: arbitrageDI.GetParams(sr),
				RiskGate:   riskDI.GetGate(sr),
				Executor:   executionDI.GetExecutor(sr),
				Reporter:   reporter,
				TradeLog:   tl,
				PublicOnly: gw.PublicOnly(),
				Log:        log,
			},
		)
	})
	return nil
}

// Startup launches the controller's scan/act loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	controller := controlDI.GetController(mono.Services())
	if err := controller.Start(ctx); err != nil {
		return err
	}
	mono.Logger().Info(ctx, "control module started", "mode", mono.Config().App.Mode)
	return nil
}
