package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// fakeCache is a minimal in-memory OrderBookCache for evaluator tests: no
// locking, no feed, just whatever books were seeded via set.
type fakeCache struct {
	books map[string]marketdomain.OrderBook
}

func newFakeCache() *fakeCache {
	return &fakeCache{books: make(map[string]marketdomain.OrderBook)}
}

func (c *fakeCache) set(pair marketdomain.Pair, bids, asks []marketdomain.Level, at time.Time) {
	c.books[pair.ID()] = marketdomain.ApplySnapshot(pair, bids, asks, at)
}

func (c *fakeCache) Fetch(pair marketdomain.Pair, budget time.Duration) (marketdomain.OrderBook, marketapp.FetchStatus) {
	b, ok := c.books[pair.ID()]
	if !ok {
		return marketdomain.OrderBook{}, marketapp.FetchMissing
	}
	if b.Crossed {
		return b, marketapp.FetchStale
	}
	if time.Since(b.Timestamp) > budget {
		return b, marketapp.FetchStale
	}
	return b, marketapp.FetchOK
}

func (c *fakeCache) FetchOrStaleFallback(pair marketdomain.Pair) (marketdomain.OrderBook, bool) {
	b, ok := c.books[pair.ID()]
	return b, ok
}

func zeroFees(marketdomain.Pair) decimal.Decimal { return decimal.Zero }

func flatFees(rate string) FeeTable {
	fee := decimal.RequireFromString(rate)
	return func(marketdomain.Pair) decimal.Decimal { return fee }
}

// triangularPath builds USDT->BTC->ETH->USDT: buy BTC with USDT, sell BTC
// for ETH, sell ETH for USDT.
func triangularPath() domain.Path {
	btcUSDT := marketdomain.NewPair("BTC", "USDT")
	btcETH := marketdomain.NewPair("BTC", "ETH")
	ethUSDT := marketdomain.NewPair("ETH", "USDT")
	return domain.Path{
		Route: "USDT->BTC->ETH->USDT",
		Steps: []domain.PathStep{
			{Pair: btcUSDT, Action: domain.Buy},
			{Pair: btcETH, Action: domain.Sell},
			{Pair: ethUSDT, Action: domain.Sell},
		},
	}
}

func seedProfitableBooks(c *fakeCache, at time.Time) domain.Path {
	path := triangularPath()
	// buy_price * (1) must be beaten by sell_price1 * sell_price2 for profit.
	c.set(path.Steps[0].Pair,
		nil,
		[]marketdomain.Level{{Price: decimal.NewFromInt(50000), Size: decimal.NewFromInt(10)}},
		at)
	c.set(path.Steps[1].Pair,
		[]marketdomain.Level{{Price: decimal.RequireFromString("16.8"), Size: decimal.NewFromInt(10)}},
		nil,
		at)
	c.set(path.Steps[2].Pair,
		[]marketdomain.Level{{Price: decimal.NewFromInt(3000), Size: decimal.NewFromInt(1000)}},
		nil,
		at)
	return path
}

func TestEvaluate_ProfitableTriangle(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path := seedProfitableBooks(cache, now)

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.RequireFromString("0.001"),
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               zeroFees,
	}

	opps := Evaluate([]domain.Path{path}, cache, params, now)

	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	opp := opps[0]
	if !opp.ProfitRate.GreaterThan(decimal.Zero) {
		t.Errorf("ProfitRate = %s, want > 0", opp.ProfitRate)
	}
	wantApprox := decimal.RequireFromString("0.008")
	if diff := opp.ProfitRate.Sub(wantApprox).Abs(); diff.GreaterThan(decimal.RequireFromString("0.001")) {
		t.Errorf("ProfitRate = %s, want ~%s", opp.ProfitRate, wantApprox)
	}
	if !opp.MaxStake.GreaterThan(decimal.Zero) {
		t.Errorf("MaxStake = %s, want > 0", opp.MaxStake)
	}
}

func TestEvaluate_BelowMinProfitThreshold_Excluded(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path := seedProfitableBooks(cache, now)

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.RequireFromString("0.05"), // above the ~0.8% edge seeded
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               zeroFees,
	}

	opps := Evaluate([]domain.Path{path}, cache, params, now)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0", len(opps))
	}
}

func TestEvaluate_FeesErodeProfit(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path := seedProfitableBooks(cache, now)

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.RequireFromString("0.001"),
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               flatFees("0.01"), // 1% per leg, three legs, dwarfs the ~0.8% edge
	}

	opps := Evaluate([]domain.Path{path}, cache, params, now)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0 once fees are applied", len(opps))
	}
}

func TestEvaluate_StaleBook_Excluded(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path := seedProfitableBooks(cache, now.Add(-time.Hour))

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.RequireFromString("0.001"),
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               zeroFees,
	}

	opps := Evaluate([]domain.Path{path}, cache, params, now)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0 for a stale book", len(opps))
	}
}

func TestEvaluate_MissingPair_Excluded(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path := triangularPath() // never seeded

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.Zero,
		MinTradeAmount:     decimal.Zero,
		Fees:               zeroFees,
	}

	opps := Evaluate([]domain.Path{path}, cache, params, now)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0 for an unpopulated path", len(opps))
	}
}

func TestEvaluate_SortsByProfitRateDescending(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	path1 := seedProfitableBooks(cache, now) // ~0.8% edge

	// A second triangle with a bigger edge, so its opportunity should sort
	// first. It shares ETH-USDT with path1 and reseeds it with the same
	// level, so path1's edge is unchanged.
	bnbUSDT := marketdomain.NewPair("BNB", "USDT")
	bnbETH := marketdomain.NewPair("BNB", "ETH")
	ethUSDT := marketdomain.NewPair("ETH", "USDT")
	path2 := domain.Path{
		Route: "USDT->BNB->ETH->USDT",
		Steps: []domain.PathStep{
			{Pair: bnbUSDT, Action: domain.Buy},
			{Pair: bnbETH, Action: domain.Sell},
			{Pair: ethUSDT, Action: domain.Sell},
		},
	}
	cache.set(bnbUSDT, nil, []marketdomain.Level{{Price: decimal.NewFromInt(500), Size: decimal.NewFromInt(1000)}}, now)
	cache.set(bnbETH, []marketdomain.Level{{Price: decimal.RequireFromString("0.2"), Size: decimal.NewFromInt(1000)}}, nil, now)
	cache.set(ethUSDT, []marketdomain.Level{{Price: decimal.NewFromInt(3000), Size: decimal.NewFromInt(1000)}}, nil, now)
	// effective rate: (0.2*3000)/500 = 1.2 -> +20% edge, well above path1's.

	params := Params{
		FreshnessBudget:    time.Second,
		MinProfitThreshold: decimal.RequireFromString("0.001"),
		MinTradeAmount:     decimal.NewFromInt(1),
		Fees:               zeroFees,
	}

	opps := Evaluate([]domain.Path{path1, path2}, cache, params, now)
	if len(opps) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opps))
	}
	if opps[0].Path.Route != path2.Route {
		t.Errorf("opps[0].Path.Route = %s, want %s (higher profit rate first)", opps[0].Path.Route, path2.Route)
	}
	if !opps[0].ProfitRate.GreaterThan(opps[1].ProfitRate) {
		t.Errorf("opportunities not sorted descending: %s then %s", opps[0].ProfitRate, opps[1].ProfitRate)
	}
}

func TestPath_Validate(t *testing.T) {
	valid := triangularPath()
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for a closed triangular cycle", err)
	}

	broken := domain.Path{
		Route: "broken",
		Steps: []domain.PathStep{
			{Pair: marketdomain.NewPair("BTC", "USDT"), Action: domain.Buy},
			{Pair: marketdomain.NewPair("ETH", "USDT"), Action: domain.Buy},
		},
	}
	if err := broken.Validate(); err == nil {
		t.Error("Validate() = nil, want error for too-short non-closing path")
	}
}

func TestPathStep_InputOutputAsset(t *testing.T) {
	pair := marketdomain.NewPair("BTC", "USDT")
	buy := domain.PathStep{Pair: pair, Action: domain.Buy}
	if buy.InputAsset() != money.Asset("USDT") || buy.OutputAsset() != money.Asset("BTC") {
		t.Errorf("buy step assets = (%s -> %s), want (USDT -> BTC)", buy.InputAsset(), buy.OutputAsset())
	}

	sell := domain.PathStep{Pair: pair, Action: domain.Sell}
	if sell.InputAsset() != money.Asset("BTC") || sell.OutputAsset() != money.Asset("USDT") {
		t.Errorf("sell step assets = (%s -> %s), want (BTC -> USDT)", sell.InputAsset(), sell.OutputAsset())
	}
}

func TestOpportunity_Expired(t *testing.T) {
	now := time.Now()
	opp := domain.Opportunity{EvaluatedAt: now.Add(-2 * time.Second)}
	if !opp.Expired(now, time.Second) {
		t.Error("Expired() = false, want true for an opportunity older than maxAge")
	}
	if opp.Expired(now, 3*time.Second) {
		t.Error("Expired() = true, want false for an opportunity within maxAge")
	}
}
