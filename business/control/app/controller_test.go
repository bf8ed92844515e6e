package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	arbitrageapp "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/app"
	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executionapp "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/app"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	exchangeapp "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	portfolioapp "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/app"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	riskapp "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/app"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// autoFillGateway fills every order at the price it was placed at, so a
// routed chain always completes without a real exchange behind it.
type autoFillGateway struct {
	mu      sync.Mutex
	tickers map[string]exchangeapp.Ticker
	orders  map[string]exchangeapp.OrderReport
	seq     int
}

func newAutoFillGateway() *autoFillGateway {
	return &autoFillGateway{
		tickers: make(map[string]exchangeapp.Ticker),
		orders:  make(map[string]exchangeapp.OrderReport),
	}
}

func (g *autoFillGateway) PublicOnly() bool { return false }

func (g *autoFillGateway) GetOrderBook(ctx context.Context, pair marketdomain.Pair, depth int) (marketdomain.OrderBook, error) {
	return marketdomain.OrderBook{}, nil
}

func (g *autoFillGateway) GetTicker(ctx context.Context, pair marketdomain.Pair) (exchangeapp.Ticker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tickers[pair.ID()]
	if !ok {
		return exchangeapp.Ticker{}, fmt.Errorf("no ticker stubbed for %s", pair.ID())
	}
	return t, nil
}

func (g *autoFillGateway) GetBalance(ctx context.Context) (map[money.Asset]decimal.Decimal, error) {
	return nil, nil
}

func (g *autoFillGateway) PlaceOrder(ctx context.Context, pair marketdomain.Pair, side exchangeapp.OrderSide, orderType exchangeapp.OrderType, size, price decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("order-%d", g.seq)
	g.orders[id] = exchangeapp.OrderReport{
		OrderID: id, Pair: pair, Side: side,
		Status: exchangeapp.OrderFilled, FilledSize: size, AvgPrice: price,
	}
	return id, nil
}

func (g *autoFillGateway) CancelOrder(ctx context.Context, pair marketdomain.Pair, orderID string) error {
	return nil
}

func (g *autoFillGateway) GetOrderStatus(ctx context.Context, pair marketdomain.Pair, orderID string) (exchangeapp.OrderReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.orders[orderID]
	if !ok {
		return exchangeapp.OrderReport{}, fmt.Errorf("unknown order %s", orderID)
	}
	return r, nil
}

func (g *autoFillGateway) Subscribe(ctx context.Context, pairs []marketdomain.Pair, handler exchangeapp.FeedHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

// fakeReporter records every call the controller makes against it.
type fakeReporter struct {
	mu            sync.Mutex
	opportunities int
	riskDecisions []riskdomain.Decision
	executions    []executiondomain.ExecutionResult
	portfolioSeen bool
}

func (r *fakeReporter) Start(ctx context.Context) error { return nil }
func (r *fakeReporter) ReportOpportunity(opp arbitragedomain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunities++
}
func (r *fakeReporter) ReportRiskDecision(opp arbitragedomain.Opportunity, decision riskdomain.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.riskDecisions = append(r.riskDecisions, decision)
}
func (r *fakeReporter) ReportExecution(result executiondomain.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions = append(r.executions, result)
}
func (r *fakeReporter) UpdateConnectionStatus(connected bool, latency time.Duration) {}
func (r *fakeReporter) UpdatePortfolio(p portfoliodomain.Portfolio, totalUSDT decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolioSeen = true
}
func (r *fakeReporter) UpdateRiskState(level riskdomain.Level, tradesToday int, realizedPnLToday decimal.Decimal) {
}
func (r *fakeReporter) Stop() error { return nil }

func controllerTestPath() arbitragedomain.Path {
	btcUSDT := marketdomain.NewPair("BTC", "USDT")
	btcETH := marketdomain.NewPair("BTC", "ETH")
	ethUSDT := marketdomain.NewPair("ETH", "USDT")
	return arbitragedomain.Path{
		Route: "USDT->BTC->ETH->USDT",
		Steps: []arbitragedomain.PathStep{
			{Pair: btcUSDT, Action: arbitragedomain.Buy},
			{Pair: btcETH, Action: arbitragedomain.Sell},
			{Pair: ethUSDT, Action: arbitragedomain.Sell},
		},
	}
}

func seedControllerBooks(cache *marketapp.Cache, path arbitragedomain.Path, at time.Time) {
	cache.ApplySnapshot(path.Steps[0].Pair, nil, []marketdomain.Level{{Price: decimal.NewFromInt(50000), Size: decimal.NewFromInt(10)}}, at)
	cache.ApplySnapshot(path.Steps[1].Pair, []marketdomain.Level{{Price: decimal.RequireFromString("16.8"), Size: decimal.NewFromInt(10)}}, nil, at)
	cache.ApplySnapshot(path.Steps[2].Pair, []marketdomain.Level{{Price: decimal.NewFromInt(3000), Size: decimal.NewFromInt(1000)}}, nil, at)
}

func controllerTestParams() arbitrageapp.Params {
	return arbitrageapp.Params{
		FreshnessBudget:    time.Hour,
		MinProfitThreshold: decimal.RequireFromString("0.001"),
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               func(marketdomain.Pair) decimal.Decimal { return decimal.Zero },
	}
}

func controllerTestRiskConfig() riskapp.Config {
	return riskapp.Config{
		MaxPositionRatio:     decimal.RequireFromString("1"),
		MaxSingleTradeRatio:  decimal.RequireFromString("1"),
		MinArbitrageInterval: time.Hour,
		MaxDailyTrades:       100,
		MaxDailyLossRatio:    decimal.RequireFromString("0.5"),
		StopLossRatio:        decimal.RequireFromString("0.5"),
		MinTradeAmount:       decimal.NewFromInt(1),
		MaxOpportunityAge:    time.Hour,
	}
}

func controllerTestExecConfig() executionapp.Config {
	return executionapp.Config{
		SlippageTolerance: decimal.Zero,
		QuantityStep:      decimal.Zero,
		PriceStep:         decimal.Zero,
		DustThreshold:     decimal.RequireFromString("0.0001"),
		OrderTimeout:      time.Second,
	}
}

func TestController_Tick_NoOpportunities(t *testing.T) {
	now := time.Now()
	cache := marketapp.NewCache() // never seeded
	portfolio := portfolioapp.NewSyncedCache(false)
	portfolio.Update(portfoliodomain.Portfolio{Balances: map[money.Asset]decimal.Decimal{"USDT": decimal.NewFromInt(1000)}, Timestamp: now})

	reporter := &fakeReporter{}
	gw := newAutoFillGateway()
	c := New(Config{TickInterval: time.Second, TradingEnabled: true}, Deps{
		Cache:      cache,
		Portfolio:  portfolio,
		Paths:      []arbitragedomain.Path{controllerTestPath()},
		EvalParams: controllerTestParams(),
		RiskGate:   riskapp.New(controllerTestRiskConfig(), now),
		Executor:   executionapp.New(gw, controllerTestExecConfig(), logger.Noop{}),
		Reporter:   reporter,
		PublicOnly: false,
		Log:        logger.Noop{},
	})

	c.tick(context.Background())

	if reporter.opportunities != 0 {
		t.Errorf("opportunities reported = %d, want 0 with an empty cache", reporter.opportunities)
	}
	if len(reporter.riskDecisions) != 0 {
		t.Errorf("risk decisions = %d, want 0: the gate should never be consulted with no opportunities", len(reporter.riskDecisions))
	}
}

func TestController_Tick_NoSyncedPortfolio_SkipsExecution(t *testing.T) {
	now := time.Now()
	path := controllerTestPath()
	cache := marketapp.NewCache()
	seedControllerBooks(cache, path, now)

	portfolio := portfolioapp.NewSyncedCache(false) // never Update'd: Snapshot() reports false
	reporter := &fakeReporter{}
	gw := newAutoFillGateway()
	c := New(Config{TickInterval: time.Second, TradingEnabled: true}, Deps{
		Cache:      cache,
		Portfolio:  portfolio,
		Paths:      []arbitragedomain.Path{path},
		EvalParams: controllerTestParams(),
		RiskGate:   riskapp.New(controllerTestRiskConfig(), now),
		Executor:   executionapp.New(gw, controllerTestExecConfig(), logger.Noop{}),
		Reporter:   reporter,
		PublicOnly: false,
		Log:        logger.Noop{},
	})

	c.tick(context.Background())

	if reporter.opportunities != 1 {
		t.Errorf("opportunities reported = %d, want 1", reporter.opportunities)
	}
	if len(reporter.riskDecisions) != 0 {
		t.Errorf("risk decisions = %d, want 0: an unsynced portfolio must not reach the risk gate", len(reporter.riskDecisions))
	}
	if reporter.portfolioSeen {
		t.Error("UpdatePortfolio called, want it skipped alongside the rest of the act phase")
	}
}

func TestController_Tick_ApprovedTradeExecutesAndRecords(t *testing.T) {
	now := time.Now()
	path := controllerTestPath()
	cache := marketapp.NewCache()
	seedControllerBooks(cache, path, now)

	portfolio := portfolioapp.NewSyncedCache(false)
	portfolio.Update(portfoliodomain.Portfolio{Balances: map[money.Asset]decimal.Decimal{"USDT": decimal.NewFromInt(1000)}, Timestamp: now})

	reporter := &fakeReporter{}
	gw := newAutoFillGateway()
	gw.tickers[path.Steps[0].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[0].Pair, Ask: decimal.NewFromInt(50000), Bid: decimal.NewFromInt(50000)}
	gw.tickers[path.Steps[1].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[1].Pair, Ask: decimal.RequireFromString("16.8"), Bid: decimal.RequireFromString("16.8")}
	gw.tickers[path.Steps[2].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[2].Pair, Ask: decimal.NewFromInt(3000), Bid: decimal.NewFromInt(3000)}

	riskGate := riskapp.New(controllerTestRiskConfig(), now)
	c := New(Config{TickInterval: time.Second, TradingEnabled: true}, Deps{
		Cache:      cache,
		Portfolio:  portfolio,
		Paths:      []arbitragedomain.Path{path},
		EvalParams: controllerTestParams(),
		RiskGate:   riskGate,
		Executor:   executionapp.New(gw, controllerTestExecConfig(), logger.Noop{}),
		Reporter:   reporter,
		PublicOnly: false,
		Log:        logger.Noop{},
	})

	c.tick(context.Background())

	if len(reporter.riskDecisions) != 1 || !reporter.riskDecisions[0].Approved {
		t.Fatalf("risk decisions = %+v, want exactly one approval", reporter.riskDecisions)
	}
	if len(reporter.executions) != 1 || !reporter.executions[0].Success {
		t.Fatalf("executions = %+v, want exactly one successful execution", reporter.executions)
	}
	if !reporter.portfolioSeen {
		t.Error("UpdatePortfolio never called on the approved path")
	}
}

func TestController_Tick_SecondTickRejectedByMinInterval(t *testing.T) {
	now := time.Now()
	path := controllerTestPath()
	cache := marketapp.NewCache()
	seedControllerBooks(cache, path, now)

	portfolio := portfolioapp.NewSyncedCache(false)
	portfolio.Update(portfoliodomain.Portfolio{Balances: map[money.Asset]decimal.Decimal{"USDT": decimal.NewFromInt(1000)}, Timestamp: now})

	reporter := &fakeReporter{}
	gw := newAutoFillGateway()
	gw.tickers[path.Steps[0].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[0].Pair, Ask: decimal.NewFromInt(50000), Bid: decimal.NewFromInt(50000)}
	gw.tickers[path.Steps[1].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[1].Pair, Ask: decimal.RequireFromString("16.8"), Bid: decimal.RequireFromString("16.8")}
	gw.tickers[path.Steps[2].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[2].Pair, Ask: decimal.NewFromInt(3000), Bid: decimal.NewFromInt(3000)}

	cfg := controllerTestRiskConfig()
	cfg.MinArbitrageInterval = time.Hour // blocks any second attempt the same tick-cycle
	riskGate := riskapp.New(cfg, now)
	c := New(Config{TickInterval: time.Second, TradingEnabled: true}, Deps{
		Cache:      cache,
		Portfolio:  portfolio,
		Paths:      []arbitragedomain.Path{path},
		EvalParams: controllerTestParams(),
		RiskGate:   riskGate,
		Executor:   executionapp.New(gw, controllerTestExecConfig(), logger.Noop{}),
		Reporter:   reporter,
		PublicOnly: false,
		Log:        logger.Noop{},
	})

	c.tick(context.Background())
	c.tick(context.Background())

	if len(reporter.executions) != 1 {
		t.Fatalf("executions = %d, want exactly 1: the second tick's attempt must be rejected by the interval floor", len(reporter.executions))
	}
	last := reporter.riskDecisions[len(reporter.riskDecisions)-1]
	if last.Approved || last.Reason != riskdomain.RejectTooFrequent {
		t.Errorf("second tick's decision = %+v, want reject %s", last, riskdomain.RejectTooFrequent)
	}
}
