// Package app implements the Risk Gate: the stateful checkpoint every
// opportunity must clear before the Executor is allowed to act on it.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// errStakeBelowMinimum is returned by sizeLocked when no stake at or above
// MinTradeAmount can be supported by depth, balance, or ratio limits.
var errStakeBelowMinimum = errors.New("sized stake below minimum trade amount")

const meterName = "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/app"

// usdt is the quote currency every portfolio valuation and position cap is
// expressed in.
const usdt = money.Asset("USDT")

// Config bundles the Risk Gate's tunables, sourced from configuration.
type Config struct {
	MaxPositionRatio     decimal.Decimal
	MaxSingleTradeRatio  decimal.Decimal
	MinArbitrageInterval time.Duration
	MaxDailyTrades       int
	MaxDailyLossRatio    decimal.Decimal
	StopLossRatio        decimal.Decimal
	MinTradeAmount       decimal.Decimal
	MaxOpportunityAge    time.Duration
}

type gateMetrics struct {
	rejections metric.Int64Counter
	approvals  metric.Int64Counter
}

// Gate is the Risk Gate's stateful implementation: one instance per
// process, guarding its rolling counters with a mutex since the controller
// and any concurrent monitoring surface may read/write it.
type Gate struct {
	cfg Config

	mu                   sync.Mutex
	day                  time.Time // local calendar day the counters belong to
	tradesToday          int
	realizedPnLToday     decimal.Decimal
	lastAttemptTime      time.Time
	tradingDisabledUntil time.Time
	level                domain.Level

	metrics *gateMetrics
}

// New builds a Gate with zeroed counters, day-stamped at construction time.
func New(cfg Config, now time.Time) *Gate {
	meter := otel.Meter(meterName)
	m := &gateMetrics{}
	m.rejections, _ = meter.Int64Counter("risk_rejections_total",
		metric.WithDescription("Opportunities rejected by the risk gate, by reason"))
	m.approvals, _ = meter.Int64Counter("risk_approvals_total",
		metric.WithDescription("Opportunities approved by the risk gate"))

	return &Gate{
		cfg:     cfg,
		day:     dayOf(now),
		level:   domain.LevelLow,
		metrics: m,
	}
}

// Level returns the gate's current loss-exposure classification.
func (g *Gate) Level() domain.Level {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

// Validate runs the eight ordered checks against an opportunity, sizing
// the stake if every check passes. publicOnly forces rejection
// outright, since a public-only gateway cannot place orders. prices
// supplies current mid-prices (asset -> USDT) for balance conversion;
// missing entries contribute zero, matching Portfolio.TotalValueUSDT.
func (g *Gate) Validate(
	ctx context.Context,
	now time.Time,
	opp arbitragedomain.Opportunity,
	portfolio portfoliodomain.Portfolio,
	prices map[money.Asset]decimal.Decimal,
	publicOnly bool,
	tradingEnabled bool,
) domain.Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverIfNeeded(now)

	decision := g.validateLocked(now, opp, portfolio, prices, publicOnly, tradingEnabled)
	if decision.Approved {
		g.metrics.approvals.Add(ctx, 1)
	} else {
		g.metrics.rejections.Add(ctx, 1)
	}
	return decision
}

func (g *Gate) validateLocked(
	now time.Time,
	opp arbitragedomain.Opportunity,
	portfolio portfoliodomain.Portfolio,
	prices map[money.Asset]decimal.Decimal,
	publicOnly bool,
	tradingEnabled bool,
) domain.Decision {
	// 1. Trading enabled and not public-only.
	if !tradingEnabled || publicOnly {
		return domain.Rejected(domain.RejectTradingDisabled)
	}

	// 2. Opportunity not expired.
	if opp.Expired(now, g.cfg.MaxOpportunityAge) {
		return domain.Rejected(domain.RejectOpportunityExpired)
	}

	// 3. Min interval since last attempt.
	if !g.lastAttemptTime.IsZero() && now.Sub(g.lastAttemptTime) < g.cfg.MinArbitrageInterval {
		return domain.Rejected(domain.RejectTooFrequent)
	}

	// 4. Daily trade count.
	if g.tradesToday >= g.cfg.MaxDailyTrades {
		return domain.Rejected(domain.RejectDailyTradeCapReached)
	}

	// 5. Kill-switch and daily loss ratio.
	if now.Before(g.tradingDisabledUntil) {
		return domain.Rejected(domain.RejectKillSwitch)
	}
	totalBalance := portfolio.TotalValueUSDT(prices)
	if totalBalance.IsPositive() {
		lossRatio := g.realizedPnLToday.Abs().Div(totalBalance)
		if g.realizedPnLToday.IsNegative() && lossRatio.GreaterThanOrEqual(g.cfg.StopLossRatio) {
			g.tradingDisabledUntil = nextDayBoundary(now)
			return domain.Rejected(domain.RejectKillSwitch)
		}
		if g.realizedPnLToday.IsNegative() && lossRatio.GreaterThanOrEqual(g.cfg.MaxDailyLossRatio) {
			return domain.Rejected(domain.RejectDailyLossLimit)
		}
	}

	// Size before the remaining depth/balance checks, per the sizing policy.
	stake, err := g.sizeLocked(opp, portfolio, prices)
	if err != nil {
		return domain.Rejected(domain.RejectStakeBelowMinimum)
	}

	// 6. Stake and position limits.
	maxSingleTrade := g.cfg.MaxSingleTradeRatio.Mul(totalBalance)
	if stake.GreaterThan(maxSingleTrade) {
		return domain.Rejected(domain.RejectStakeLimit)
	}
	if !positionLimitsOK(opp.Path, stake, portfolio, prices, g.cfg.MaxPositionRatio.Mul(totalBalance)) {
		return domain.Rejected(domain.RejectPositionLimit)
	}

	// 7. Depth limit.
	if stake.GreaterThan(opp.MaxStake) {
		return domain.Rejected(domain.RejectDepthLimit)
	}

	// 8. Sufficient free balance.
	free := portfolio.Available(opp.Path.StartAsset())
	if stake.GreaterThan(free) {
		return domain.Rejected(domain.RejectInsufficientBalance)
	}

	return domain.Approval(stake)
}

// Size implements the standalone sizing contract for callers that want a
// stake without running the full gate (e.g. a dry-run report).
func (g *Gate) Size(opp arbitragedomain.Opportunity, portfolio portfoliodomain.Portfolio, prices map[money.Asset]decimal.Decimal) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sizeLocked(opp, portfolio, prices)
}

func (g *Gate) sizeLocked(opp arbitragedomain.Opportunity, portfolio portfoliodomain.Portfolio, prices map[money.Asset]decimal.Decimal) (decimal.Decimal, error) {
	totalBalance := portfolio.TotalValueUSDT(prices)
	startAsset := opp.Path.StartAsset()

	stake := opp.MaxStake
	if cap := g.cfg.MaxSingleTradeRatio.Mul(totalBalance); cap.LessThan(stake) {
		stake = cap
	}

	// free and sized are both denominated in the path's start asset, so
	// Amount rejects the comparison outright if that ever stops being true.
	free := money.New(startAsset, portfolio.Available(startAsset))
	sized := money.New(startAsset, stake)
	if covered, err := free.GreaterThanOrEqual(sized); err != nil {
		panic(err)
	} else if !covered {
		sized = free
	}

	minTrade := money.New(startAsset, g.cfg.MinTradeAmount)
	ok, err := sized.GreaterThanOrEqual(minTrade)
	if err != nil {
		panic(err)
	}
	if !ok {
		return decimal.Zero, errStakeBelowMinimum
	}
	return sized.Decimal(), nil
}

// Record updates the rolling counters and derived risk level after an
// execution attempt. Called exactly once per attempt, regardless of
// outcome.
func (g *Gate) Record(now time.Time, outcome domain.Outcome, totalBalanceUSDT decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverIfNeeded(now)

	g.lastAttemptTime = now
	g.tradesToday++
	g.realizedPnLToday = g.realizedPnLToday.Add(outcome.ProfitUSDT)

	g.level = levelFor(g.realizedPnLToday, totalBalanceUSDT, g.cfg.StopLossRatio)
}

func (g *Gate) rolloverIfNeeded(now time.Time) {
	today := dayOf(now)
	if today.Equal(g.day) {
		return
	}
	g.day = today
	g.tradesToday = 0
	g.realizedPnLToday = decimal.Zero
	g.tradingDisabledUntil = time.Time{}
}

func levelFor(realizedPnL, totalBalance, stopLossRatio decimal.Decimal) domain.Level {
	if !realizedPnL.IsNegative() || totalBalance.IsZero() {
		return domain.LevelLow
	}
	ratio := realizedPnL.Abs().Div(totalBalance)
	switch {
	case ratio.GreaterThanOrEqual(stopLossRatio):
		return domain.LevelCritical
	case ratio.GreaterThan(decimal.NewFromFloat(0.03)):
		return domain.LevelHigh
	case ratio.GreaterThan(decimal.NewFromFloat(0.01)):
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// positionLimitsOK checks that every non-quote asset the path touches stays
// within maxPosition's USDT value after the trade, approximating post-trade
// exposure as the current resting balance plus the stake converted into
// that asset (a conservative upper bound: no intermediate leg holds more
// than the chain's starting stake at once), then priced back into USDT so
// it is comparable to maxPosition. The path's start asset is excluded: it
// is the quote currency the stake is denominated in, sitting as cash rather
// than a market position, so its resting balance carries no price exposure
// to cap.
func positionLimitsOK(path arbitragedomain.Path, stake decimal.Decimal, portfolio portfoliodomain.Portfolio, prices map[money.Asset]decimal.Decimal, maxPosition decimal.Decimal) bool {
	if maxPosition.IsZero() {
		return true
	}
	cap := money.New(usdt, maxPosition)

	seen := map[money.Asset]bool{path.StartAsset(): true}
	for _, step := range path.Steps {
		for _, asset := range [2]money.Asset{step.InputAsset(), step.OutputAsset()} {
			if seen[asset] {
				continue
			}
			seen[asset] = true

			price, ok := prices[asset]
			if !ok || !price.IsPositive() {
				continue // no price to convert; cannot bound this asset, skip conservatively
			}
			current := portfolio.Available(asset)
			stakeInAsset := stake.Div(price)
			exposure := money.New(usdt, current.Add(stakeInAsset).Mul(price))

			// Both sides are freshly constructed in USDT above, so a
			// mismatch here would mean this function stopped doing that.
			cmp, err := exposure.Cmp(cap)
			if err != nil {
				panic(err)
			}
			if cmp > 0 {
				return false
			}
		}
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func nextDayBoundary(t time.Time) time.Time {
	return dayOf(t).AddDate(0, 0, 1)
}
