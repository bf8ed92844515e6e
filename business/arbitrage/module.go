// Package arbitrage implements the Arbitrage Evaluator bounded context: a
// pure function turning configured paths and current order-book depth into
// a ranked list of opportunities.
package arbitrage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	arbitrageapp "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the arbitrage bounded context. It has no own runtime
// loop: the controller calls app.Evaluate directly on every tick, using the
// Params this module registers.
type Module struct{}

// RegisterServices registers the evaluator thresholds and fee lookup as an
// arbitrageapp.Params value. Paths are parsed and validated in Startup.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.ParamsToken, func(sr di.ServiceRegistry) arbitrageapp.Params {
		cfg := sr.Get("config").(*config.Config)
		return arbitrageapp.Params{
			FreshnessBudget:        cfg.Trading.FreshnessBudget(),
			MinProfitThreshold:     decimal.NewFromFloat(cfg.Trading.MinProfitThreshold),
			MinTradeAmount:         decimal.NewFromFloat(cfg.Trading.MinTradeAmount),
			MaxProfitRateThreshold: decimal.NewFromFloat(cfg.Trading.MaxProfitRateThreshold),
			Fees: func(pair marketdomain.Pair) decimal.Decimal {
				return cfg.Trading.FeeRateFor(pair.ID())
			},
		}
	})
	return nil
}

// Startup validates every configured path eagerly, so a malformed cycle
// fails at process start rather than being silently skipped on every tick.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	paths, err := PathsFromConfig(cfg)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	mono.Logger().Info(ctx, "arbitrage module started", "paths", len(paths))
	return nil
}

// PathsFromConfig converts the configured path definitions into domain
// paths, parsing each step's pair and action.
func PathsFromConfig(cfg *config.Config) ([]domain.Path, error) {
	out := make([]domain.Path, 0, len(cfg.Trading.Paths))
	for _, pc := range cfg.Trading.Paths {
		steps := make([]domain.PathStep, 0, len(pc.Steps))
		for _, sc := range pc.Steps {
			pair, err := marketdomain.PairFromCanonical(sc.Pair)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", pc.Route, err)
			}
			action, err := parseAction(sc.Action)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", pc.Route, err)
			}
			steps = append(steps, domain.PathStep{Pair: pair, Action: action})
		}
		out = append(out, domain.Path{Route: pc.Route, Steps: steps})
	}
	return out, nil
}

func parseAction(raw string) (domain.Action, error) {
	switch strings.ToLower(raw) {
	case "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return 0, fmt.Errorf("unrecognized step action %q", raw)
	}
}
