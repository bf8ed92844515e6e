package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

func testConfig() Config {
	return Config{
		MaxPositionRatio:     decimal.RequireFromString("0.5"),
		MaxSingleTradeRatio:  decimal.RequireFromString("0.25"),
		MinArbitrageInterval: time.Second,
		MaxDailyTrades:       5,
		MaxDailyLossRatio:    decimal.RequireFromString("0.05"),
		StopLossRatio:        decimal.RequireFromString("0.1"),
		MinTradeAmount:       decimal.NewFromInt(1),
		MaxOpportunityAge:    5 * time.Second,
	}
}

func testPath() arbitragedomain.Path {
	btcUSDT := marketdomain.NewPair("BTC", "USDT")
	ethUSDT := marketdomain.NewPair("ETH", "USDT")
	btcETH := marketdomain.NewPair("BTC", "ETH")
	return arbitragedomain.Path{
		Route: "USDT->BTC->ETH->USDT",
		Steps: []arbitragedomain.PathStep{
			{Pair: btcUSDT, Action: arbitragedomain.Buy},
			{Pair: btcETH, Action: arbitragedomain.Sell},
			{Pair: ethUSDT, Action: arbitragedomain.Sell},
		},
	}
}

func testOpportunity(now time.Time, maxStake string) arbitragedomain.Opportunity {
	return arbitragedomain.Opportunity{
		Path:        testPath(),
		ProfitRate:  decimal.RequireFromString("0.01"),
		MaxStake:    decimal.RequireFromString(maxStake),
		EvaluatedAt: now,
	}
}

func testPortfolio(now time.Time, usdt string) portfoliodomain.Portfolio {
	return portfoliodomain.Portfolio{
		Balances:  map[money.Asset]decimal.Decimal{"USDT": decimal.RequireFromString(usdt)},
		Timestamp: now,
	}
}

func testPrices() map[money.Asset]decimal.Decimal {
	return map[money.Asset]decimal.Decimal{
		"BTC": decimal.NewFromInt(50000),
		"ETH": decimal.NewFromInt(3000),
	}
}

func TestGate_Validate_Approves(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)
	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)

	if !decision.Approved {
		t.Fatalf("Approved = false, reason = %s, want true", decision.Reason)
	}
	if !decision.Stake.IsPositive() {
		t.Errorf("Stake = %s, want > 0", decision.Stake)
	}
}

func TestGate_Validate_RejectsWhenTradingDisabled(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)
	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, false)

	if decision.Approved || decision.Reason != domain.RejectTradingDisabled {
		t.Errorf("Decision = %+v, want reject %s", decision, domain.RejectTradingDisabled)
	}
}

func TestGate_Validate_RejectsWhenPublicOnly(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)
	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), true, true)

	if decision.Approved || decision.Reason != domain.RejectTradingDisabled {
		t.Errorf("Decision = %+v, want reject %s", decision, domain.RejectTradingDisabled)
	}
}

func TestGate_Validate_RejectsExpiredOpportunity(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)
	stale := testOpportunity(now.Add(-time.Minute), "100")

	decision := g.Validate(context.Background(), now, stale, testPortfolio(now, "1000"), testPrices(), false, true)
	if decision.Approved || decision.Reason != domain.RejectOpportunityExpired {
		t.Errorf("Decision = %+v, want reject %s", decision, domain.RejectOpportunityExpired)
	}
}

func TestGate_Validate_RejectsTooFrequent(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)

	first := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if !first.Approved {
		t.Fatalf("first attempt rejected: %s", first.Reason)
	}
	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(1)}, decimal.NewFromInt(1000))

	second := g.Validate(context.Background(), now.Add(100*time.Millisecond), testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if second.Approved || second.Reason != domain.RejectTooFrequent {
		t.Errorf("Decision = %+v, want reject %s", second, domain.RejectTooFrequent)
	}
}

func TestGate_Validate_RejectsDailyTradeCap(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MaxDailyTrades = 1
	cfg.MinArbitrageInterval = 0
	g := New(cfg, now)

	first := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if !first.Approved {
		t.Fatalf("first attempt rejected: %s", first.Reason)
	}
	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(1)}, decimal.NewFromInt(1000))

	second := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if second.Approved || second.Reason != domain.RejectDailyTradeCapReached {
		t.Errorf("Decision = %+v, want reject %s", second, domain.RejectDailyTradeCapReached)
	}
}

func TestGate_Validate_KillSwitchTripsOnStopLoss(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinArbitrageInterval = 0
	cfg.MaxDailyTrades = 100
	g := New(cfg, now)

	// Book a loss at exactly the stop-loss ratio (10% of 1000 = 100).
	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(-100)}, decimal.NewFromInt(1000))

	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if decision.Approved || decision.Reason != domain.RejectKillSwitch {
		t.Fatalf("Decision = %+v, want reject %s", decision, domain.RejectKillSwitch)
	}

	// The kill-switch should hold for the rest of the day, even on a later attempt.
	later := g.Validate(context.Background(), now.Add(time.Minute), testOpportunity(now.Add(time.Minute), "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if later.Approved || later.Reason != domain.RejectKillSwitch {
		t.Errorf("Decision = %+v, want reject %s to persist", later, domain.RejectKillSwitch)
	}
}

func TestGate_Validate_RejectsDailyLossLimitBelowStopLoss(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinArbitrageInterval = 0
	cfg.MaxDailyTrades = 100
	cfg.MaxDailyLossRatio = decimal.RequireFromString("0.03")
	cfg.StopLossRatio = decimal.RequireFromString("0.5") // stop-loss far away, daily limit trips first
	g := New(cfg, now)

	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(-40)}, decimal.NewFromInt(1000)) // 4% loss

	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), testPortfolio(now, "1000"), testPrices(), false, true)
	if decision.Approved || decision.Reason != domain.RejectDailyLossLimit {
		t.Fatalf("Decision = %+v, want reject %s", decision, domain.RejectDailyLossLimit)
	}
}

func TestGate_Validate_RejectsStakeBelowMinimum(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinTradeAmount = decimal.NewFromInt(50)
	g := New(cfg, now)

	// Free balance of 10 USDT can never size up to the 50 USDT minimum.
	decision := g.Validate(context.Background(), now, testOpportunity(now, "1000"), testPortfolio(now, "10"), testPrices(), false, true)
	if decision.Approved || decision.Reason != domain.RejectStakeBelowMinimum {
		t.Errorf("Decision = %+v, want reject %s", decision, domain.RejectStakeBelowMinimum)
	}
}

func TestGate_Validate_RejectsPositionLimit(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MaxSingleTradeRatio = decimal.RequireFromString("1")     // no single-trade cap in play
	cfg.MaxPositionRatio = decimal.RequireFromString("0.000001") // maxPosition = 0.1 USDT
	g := New(cfg, now)

	decision := g.Validate(context.Background(), now, testOpportunity(now, "40000"), testPortfolio(now, "100000"), testPrices(), false, true)
	if decision.Approved || decision.Reason != domain.RejectPositionLimit {
		t.Errorf("Decision = %+v, want reject %s", decision, domain.RejectPositionLimit)
	}
}

func TestGate_Validate_RejectsAgainstEmptyPortfolio(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)

	empty := portfoliodomain.Empty(now)
	decision := g.Validate(context.Background(), now, testOpportunity(now, "100"), empty, testPrices(), false, true)
	if decision.Approved {
		t.Fatalf("Decision = %+v, want rejection against a zero-balance portfolio", decision)
	}
}

func TestGate_Record_RaisesLevel(t *testing.T) {
	now := time.Now()
	g := New(testConfig(), now)

	if g.Level() != domain.LevelLow {
		t.Fatalf("initial Level() = %s, want %s", g.Level(), domain.LevelLow)
	}

	// 5% loss on a 1000 USDT book: above the "medium" threshold (>1%), below
	// "high" (>3%) is false since 5% > 3%, so this should read High.
	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(-50)}, decimal.NewFromInt(1000))
	if g.Level() != domain.LevelHigh {
		t.Errorf("Level() = %s, want %s after a 5%% daily loss", g.Level(), domain.LevelHigh)
	}
}

func TestGate_Record_RolloverResetsCounters(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinArbitrageInterval = 0
	g := New(cfg, now)

	g.Record(now, domain.Outcome{ProfitUSDT: decimal.NewFromInt(-100)}, decimal.NewFromInt(1000)) // trips kill-switch

	tomorrow := now.AddDate(0, 0, 1)
	decision := g.Validate(context.Background(), tomorrow, testOpportunity(tomorrow, "100"), testPortfolio(tomorrow, "1000"), testPrices(), false, true)
	if !decision.Approved {
		t.Errorf("Decision = %+v, want approval after the day rolls over and counters reset", decision)
	}
}
