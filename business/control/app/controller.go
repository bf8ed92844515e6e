package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	arbitrageapp "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/app"
	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executionapp "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/app"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	portfolioapp "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/app"
	portfolioinfra "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/infra"
	riskapp "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/app"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/tradelog"
)

// portfolioStaleBound is how far behind the portfolio snapshot can lag
// before the controller triggers an out-of-band refresh.
const portfolioStaleBound = 2 * portfolioinfra.SyncInterval

// Config bundles the controller's own tunables.
type Config struct {
	TickInterval   time.Duration
	TradingEnabled bool // false in monitor mode
}

// Controller owns the scan/act loop: Evaluator -> Risk Gate -> Executor ->
// Risk Gate.record, once per tick, with at most one execution in flight.
type Controller struct {
	cfg Config

	cache     *marketapp.Cache
	portfolio *portfolioapp.SyncedCache
	syncer    *portfolioinfra.Syncer
	paths     []arbitragedomain.Path
	evalParams arbitrageapp.Params
	riskGate  *riskapp.Gate
	executor  *executionapp.Executor
	reporter  Reporter
	tradelog  *tradelog.Writer
	log       logger.LoggerInterface
	publicOnly bool

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}
}

// Deps bundles everything the Controller is wired against, so New doesn't
// take a long, fragile positional argument list.
type Deps struct {
	Cache      *marketapp.Cache
	Portfolio  *portfolioapp.SyncedCache
	Syncer     *portfolioinfra.Syncer
	Paths      []arbitragedomain.Path
	EvalParams arbitrageapp.Params
	RiskGate   *riskapp.Gate
	Executor   *executionapp.Executor
	Reporter   Reporter
	TradeLog   *tradelog.Writer
	PublicOnly bool
	Log        logger.LoggerInterface
}

// New builds a Controller wired to its dependencies.
func New(cfg Config, deps Deps) *Controller {
	return &Controller{
		cfg:        cfg,
		cache:      deps.Cache,
		portfolio:  deps.Portfolio,
		syncer:     deps.Syncer,
		paths:      deps.Paths,
		evalParams: deps.EvalParams,
		riskGate:   deps.RiskGate,
		executor:   deps.Executor,
		reporter:   deps.Reporter,
		tradelog:   deps.TradeLog,
		publicOnly: deps.PublicOnly,
		log:        deps.Log,
		state:      StateStopped,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start transitions stopped -> starting -> running and launches the loop
// in the background. Start also begins a new run from the error state;
// calling it in any other state is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateStopped && c.state != StateError {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStarting
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.mu.Unlock()

	if err := c.reporter.Start(ctx); err != nil {
		c.mu.Lock()
		c.state = StateError
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Stop transitions running -> stopping -> stopped. Idempotent: calling it
// more than once, or before Start, is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	stop := c.stop
	done := c.done
	c.mu.Unlock()

	close(stop)
	<-done

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	return c.reporter.Stop()
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one scan/act cycle: refresh-if-stale, evaluate, then at most
// one risk-gated execution, in profit-descending order.
func (c *Controller) tick(ctx context.Context) {
	now := time.Now()

	if c.syncer != nil && c.portfolio.LastSyncAge(now) > portfolioStaleBound {
		go c.syncer.SyncNow(ctx)
	}

	opportunities := arbitrageapp.Evaluate(c.paths, c.cache, c.evalParams, now)
	for _, opp := range opportunities {
		c.reporter.ReportOpportunity(opp)
	}
	if len(opportunities) == 0 {
		return
	}

	portfolioSnapshot, ok := c.portfolio.Snapshot()
	if !ok {
		return // no synced balances; nothing to size a trade against
	}
	prices := midPrices(c.cache, opportunities)
	c.reporter.UpdatePortfolio(portfolioSnapshot, portfolioSnapshot.TotalValueUSDT(prices))

	for _, opp := range opportunities {
		decision := c.riskGate.Validate(ctx, now, opp, portfolioSnapshot, prices, c.publicOnly, c.cfg.TradingEnabled)
		c.reporter.ReportRiskDecision(opp, decision)
		if !decision.Approved {
			continue
		}

		result := c.executor.Execute(ctx, opp, decision.Stake, portfolioSnapshot)
		c.reporter.ReportExecution(result)
		if c.tradelog != nil {
			if err := c.tradelog.Write(result); err != nil {
				c.log.Warn(ctx, "trade log write failed", "error", err.Error())
			}
		}

		totalBalance := portfolioSnapshot.TotalValueUSDT(prices)
		c.riskGate.Record(now, riskdomain.Outcome{ProfitUSDT: pnlInUSDT(opp.Path.StartAsset(), result, prices)}, totalBalance)
		level := c.riskGate.Level()
		c.reporter.UpdateRiskState(level, 0, decimal.Zero)

		if c.syncer != nil {
			go c.syncer.SyncNow(ctx)
		}
		break // at most one execution per tick, preserving min_arbitrage_interval
	}
}

// pnlInUSDT converts an execution's realized P&L (denominated in
// startAsset) to USDT terms using the mid-price table.
func pnlInUSDT(startAsset money.Asset, result executiondomain.ExecutionResult, prices map[money.Asset]decimal.Decimal) decimal.Decimal {
	if startAsset == "USDT" {
		return result.RealizedPnL
	}
	price, ok := prices[startAsset]
	if !ok {
		return decimal.Zero
	}
	return result.RealizedPnL.Mul(price)
}

// midPrices builds an asset -> USDT price table from every USDT-quoted pair
// the evaluated opportunities touch, read straight from the Order-Book
// Cache's best bid/ask.
func midPrices(cache *marketapp.Cache, opportunities []arbitragedomain.Opportunity) map[money.Asset]decimal.Decimal {
	out := map[money.Asset]decimal.Decimal{"USDT": decimal.NewFromInt(1)}
	seen := map[string]bool{}
	for _, opp := range opportunities {
		for _, step := range opp.Path.Steps {
			if seen[step.Pair.ID()] {
				continue
			}
			seen[step.Pair.ID()] = true
			if step.Pair.Quote() != "USDT" {
				continue
			}
			book, status := cache.Fetch(step.Pair, time.Hour)
			if status == marketapp.FetchMissing {
				continue
			}
			bid, okBid := book.BestBid()
			ask, okAsk := book.BestAsk()
			if !okBid || !okAsk {
				continue
			}
			out[step.Pair.Base()] = bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
		}
	}
	return out
}
