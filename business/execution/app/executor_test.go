package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	exchangeapp "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// fakeGateway is a scripted exchangeapp.Gateway: tickers and terminal order
// reports are canned per pair, so every leg resolves on the executor's first
// poll without sleeping through PollInterval.
type fakeGateway struct {
	tickers      map[string]exchangeapp.Ticker
	placeErr     map[string]error
	reports      map[string]exchangeapp.OrderReport
	placedOrders []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		tickers:  make(map[string]exchangeapp.Ticker),
		placeErr: make(map[string]error),
		reports:  make(map[string]exchangeapp.OrderReport),
	}
}

func (g *fakeGateway) PublicOnly() bool { return false }

func (g *fakeGateway) GetOrderBook(ctx context.Context, pair marketdomain.Pair, depth int) (marketdomain.OrderBook, error) {
	return marketdomain.OrderBook{}, nil
}

func (g *fakeGateway) GetTicker(ctx context.Context, pair marketdomain.Pair) (exchangeapp.Ticker, error) {
	t, ok := g.tickers[pair.ID()]
	if !ok {
		return exchangeapp.Ticker{}, errors.New("no ticker stubbed")
	}
	return t, nil
}

func (g *fakeGateway) GetBalance(ctx context.Context) (map[money.Asset]decimal.Decimal, error) {
	return nil, nil
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, pair marketdomain.Pair, side exchangeapp.OrderSide, orderType exchangeapp.OrderType, size, price decimal.Decimal) (string, error) {
	if err, ok := g.placeErr[pair.ID()]; ok {
		return "", err
	}
	g.placedOrders = append(g.placedOrders, pair.ID())
	return "order-" + pair.ID(), nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, pair marketdomain.Pair, orderID string) error {
	return nil
}

func (g *fakeGateway) GetOrderStatus(ctx context.Context, pair marketdomain.Pair, orderID string) (exchangeapp.OrderReport, error) {
	r, ok := g.reports[pair.ID()]
	if !ok {
		return exchangeapp.OrderReport{}, errors.New("no report stubbed")
	}
	return r, nil
}

func (g *fakeGateway) Subscribe(ctx context.Context, pairs []marketdomain.Pair, handler exchangeapp.FeedHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

func testExecPath() arbitragedomain.Path {
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

func noStepConfig() Config {
	return Config{
		SlippageTolerance: decimal.Zero,
		QuantityStep:      decimal.Zero,
		PriceStep:         decimal.Zero,
		DustThreshold:     decimal.RequireFromString("0.0001"),
		OrderTimeout:      time.Second,
	}
}

func portfolioWith(asset string, amount string, now time.Time) portfoliodomain.Portfolio {
	return portfoliodomain.Portfolio{
		Balances:  map[money.Asset]decimal.Decimal{money.Asset(asset): decimal.RequireFromString(amount)},
		Timestamp: now,
	}
}

func TestExecutor_Execute_ProfitableChainSucceeds(t *testing.T) {
	path := testExecPath()
	gw := newFakeGateway()

	gw.tickers[path.Steps[0].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[0].Pair, Ask: decimal.NewFromInt(50000), Bid: decimal.NewFromInt(50000)}
	gw.tickers[path.Steps[1].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[1].Pair, Ask: decimal.RequireFromString("16.8"), Bid: decimal.RequireFromString("16.8")}
	gw.tickers[path.Steps[2].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[2].Pair, Ask: decimal.NewFromInt(3000), Bid: decimal.NewFromInt(3000)}

	gw.reports[path.Steps[0].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("0.002"), AvgPrice: decimal.NewFromInt(50000)}
	gw.reports[path.Steps[1].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("0.002"), AvgPrice: decimal.RequireFromString("16.8")}
	gw.reports[path.Steps[2].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("0.0336"), AvgPrice: decimal.NewFromInt(3000)}

	exec := New(gw, noStepConfig(), logger.Noop{})
	now := time.Now()
	opp := arbitragedomain.Opportunity{Path: path, MaxStake: decimal.NewFromInt(100), EvaluatedAt: now}
	result := exec.Execute(context.Background(), opp, decimal.NewFromInt(100), portfolioWith("USDT", "1000", now))

	if !result.Success {
		t.Fatalf("Success = false, want true; legs = %+v", result.Legs)
	}
	if len(result.Legs) != 3 {
		t.Fatalf("len(Legs) = %d, want 3", len(result.Legs))
	}
	if !result.RealizedPnL.GreaterThan(decimal.Zero) {
		t.Errorf("RealizedPnL = %s, want > 0", result.RealizedPnL)
	}
	wantPnL := decimal.RequireFromString("0.8")
	if diff := result.RealizedPnL.Sub(wantPnL).Abs(); diff.GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("RealizedPnL = %s, want ~%s", result.RealizedPnL, wantPnL)
	}
}

func TestExecutor_Execute_AbortsOnUnfilledLeg(t *testing.T) {
	path := testExecPath()
	gw := newFakeGateway()

	gw.tickers[path.Steps[0].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[0].Pair, Ask: decimal.NewFromInt(50000), Bid: decimal.NewFromInt(50000)}
	gw.tickers[path.Steps[1].Pair.ID()] = exchangeapp.Ticker{Pair: path.Steps[1].Pair, Ask: decimal.RequireFromString("16.8"), Bid: decimal.RequireFromString("16.8")}

	gw.reports[path.Steps[0].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("0.002"), AvgPrice: decimal.NewFromInt(50000)}
	// Second leg never fills: placement itself fails.
	gw.placeErr[path.Steps[1].Pair.ID()] = errors.New("exchange rejected order")

	exec := New(gw, noStepConfig(), logger.Noop{})
	now := time.Now()
	opp := arbitragedomain.Opportunity{Path: path, MaxStake: decimal.NewFromInt(100), EvaluatedAt: now}
	result := exec.Execute(context.Background(), opp, decimal.NewFromInt(100), portfolioWith("USDT", "1000", now))

	if result.Success {
		t.Fatalf("Success = true, want false when the second leg cannot be placed")
	}
	if len(result.Legs) != 3 {
		t.Fatalf("len(Legs) = %d, want 3 (one per path step, including the un-attempted third leg)", len(result.Legs))
	}
	if result.Legs[1].Outcome.Succeeded() {
		t.Errorf("second leg Outcome = %s, want a non-succeeded outcome", result.Legs[1].Outcome)
	}
	if result.Legs[2].Outcome != domain.LegNotAttempted {
		t.Errorf("third leg Outcome = %s, want %s", result.Legs[2].Outcome, domain.LegNotAttempted)
	}
	if result.Legs[2].Pair != path.Steps[2].Pair {
		t.Errorf("third leg Pair = %v, want %v", result.Legs[2].Pair, path.Steps[2].Pair)
	}
}

func TestExecutor_Execute_PartialDustTreatedAsSuccess(t *testing.T) {
	path := testExecPath()
	gw := newFakeGateway()

	for _, step := range path.Steps {
		gw.tickers[step.Pair.ID()] = exchangeapp.Ticker{Pair: step.Pair, Ask: decimal.NewFromInt(100), Bid: decimal.NewFromInt(100)}
	}
	// First leg: requested 1, filled 0.99995 (remainder 0.00005, under the
	// 0.0001 dust threshold), reported as cancelled rather than filled.
	gw.reports[path.Steps[0].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderCancelled, FilledSize: decimal.RequireFromString("0.99995"), AvgPrice: decimal.NewFromInt(100)}
	gw.reports[path.Steps[1].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("0.99995"), AvgPrice: decimal.NewFromInt(100)}
	gw.reports[path.Steps[2].Pair.ID()] = exchangeapp.OrderReport{Status: exchangeapp.OrderFilled, FilledSize: decimal.RequireFromString("99.995"), AvgPrice: decimal.NewFromInt(100)}

	exec := New(gw, noStepConfig(), logger.Noop{})
	now := time.Now()
	opp := arbitragedomain.Opportunity{Path: path, MaxStake: decimal.NewFromInt(100), EvaluatedAt: now}
	result := exec.Execute(context.Background(), opp, decimal.NewFromInt(100), portfolioWith("USDT", "1000", now))

	if result.Legs[0].Outcome.String() != "partial_dust" {
		t.Fatalf("first leg Outcome = %s, want partial_dust", result.Legs[0].Outcome)
	}
	if !result.Success {
		t.Errorf("Success = false, want true: a dust-level partial fill should not abort the chain")
	}
}

func TestExecutor_Execute_InsufficientPreTradeBalance(t *testing.T) {
	path := testExecPath()
	gw := newFakeGateway()
	exec := New(gw, noStepConfig(), logger.Noop{})

	now := time.Now()
	opp := arbitragedomain.Opportunity{Path: path, MaxStake: decimal.NewFromInt(100), EvaluatedAt: now}
	result := exec.Execute(context.Background(), opp, decimal.NewFromInt(100), portfolioWith("USDT", "10", now))

	if result.Success {
		t.Fatal("Success = true, want false when free balance is below the requested stake")
	}
	if len(result.Legs) != 0 {
		t.Errorf("len(Legs) = %d, want 0: the pre-trade check should short-circuit before any leg runs", len(result.Legs))
	}
	if len(gw.placedOrders) != 0 {
		t.Errorf("placedOrders = %v, want none placed", gw.placedOrders)
	}
}
