// Package app implements the Executor: turns an accepted opportunity into
// a sequenced chain of limit orders.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	exchangeapp "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

const tracerName = "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/app"

// PollInterval is the cadence at which a placed order's status is polled.
const PollInterval = 150 * time.Millisecond

// Config bundles the Executor's tunables.
type Config struct {
	SlippageTolerance decimal.Decimal
	QuantityStep      decimal.Decimal
	PriceStep         decimal.Decimal
	DustThreshold     decimal.Decimal
	OrderTimeout      time.Duration
}

// Executor runs one opportunity's leg chain at a time. Callers MUST
// serialize calls to Execute — it assumes a single in-flight execution —
// which the Controller enforces by never launching a second Execute before
// the first returns.
type Executor struct {
	gateway exchangeapp.Gateway
	cfg     Config
	log     logger.LoggerInterface

	legLatency metric.Float64Histogram
}

// New builds an Executor.
func New(gateway exchangeapp.Gateway, cfg Config, log logger.LoggerInterface) *Executor {
	meter := otel.Meter(tracerName)
	hist, _ := meter.Float64Histogram("execution_leg_fill_seconds",
		metric.WithDescription("Wall-clock time from order placement to terminal status"))
	return &Executor{gateway: gateway, cfg: cfg, log: log, legLatency: hist}
}

// Execute runs opportunity.Path's legs in order for the given stake,
// returning a bounded result even on partial failure: legs already filled
// are recorded, never reversed.
func (e *Executor) Execute(ctx context.Context, opp arbitragedomain.Opportunity, stake decimal.Decimal, available portfoliodomain.Portfolio) domain.ExecutionResult {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "execution.Execute")
	defer span.End()

	result := domain.ExecutionResult{
		Route:     opp.Path.Route,
		Stake:     stake,
		StartedAt: time.Now(),
	}

	startAsset := opp.Path.StartAsset()
	if free := available.Available(startAsset); free.LessThan(stake) {
		result.Success = false
		result.FinishedAt = time.Now()
		e.log.Warn(ctx, "pre-trade balance check failed", "route", opp.Path.Route, "stake", stake.String(), "free", free.String())
		return result
	}

	input := money.New(startAsset, stake)
	success := true
	var pnl decimal.Decimal
	for i, step := range opp.Path.Steps {
		leg := e.runLeg(ctx, step, input)
		result.Legs = append(result.Legs, leg)

		if !leg.Outcome.Succeeded() {
			success = false
			// No price table is available at this layer to convert
			// whatever landed in the aborting leg's output asset back to
			// the start asset, so an aborted chain books no realized P&L.
			pnl = decimal.Zero
			for _, skipped := range opp.Path.Steps[i+1:] {
				result.Legs = append(result.Legs, domain.LegResult{Pair: skipped.Pair, Outcome: domain.LegNotAttempted})
			}
			break
		}
		input = legOutput(step, leg)
	}
	if success {
		// input has cycled back to the start asset by the time every step
		// has succeeded. PnL can be negative, so it stays a plain decimal
		// rather than an Amount.
		pnl = input.Decimal().Sub(stake)
	}

	result.Success = success
	result.FinishedAt = time.Now()
	result.RealizedPnL = pnl
	return result
}

// legOutput converts a filled leg's result into the amount of the leg's
// output asset available to feed the next leg.
func legOutput(step arbitragedomain.PathStep, leg domain.LegResult) money.Amount {
	if step.Action == arbitragedomain.Buy {
		return money.New(step.OutputAsset(), leg.FilledSize)
	}
	return money.New(step.OutputAsset(), leg.FilledSize.Mul(leg.AvgPrice))
}

// runLeg places and polls a single leg, rounding the computed quantity and
// price to the configured steps.
func (e *Executor) runLeg(ctx context.Context, step arbitragedomain.PathStep, input money.Amount) domain.LegResult {
	start := time.Now()
	leg := domain.LegResult{Pair: step.Pair, InputAmount: input.Decimal(), PlacedAt: start}

	ticker, err := e.gateway.GetTicker(ctx, step.Pair)
	if err != nil {
		e.log.Warn(ctx, "leg ticker read failed", "pair", step.Pair.ID(), "error", err.Error())
		leg.Outcome = domain.LegUnfilled
		leg.ResolvedAt = time.Now()
		return leg
	}

	side, size, price := e.priceLeg(step, input, ticker)
	if size.IsZero() {
		leg.Outcome = domain.LegUnfilled
		leg.ResolvedAt = time.Now()
		return leg
	}

	orderID, err := e.gateway.PlaceOrder(ctx, step.Pair, side, exchangeapp.LimitOrder, size, price)
	if err != nil {
		e.log.Warn(ctx, "order placement failed", "pair", step.Pair.ID(), "error", err.Error())
		leg.Outcome = domain.LegUnfilled
		leg.ResolvedAt = time.Now()
		return leg
	}
	leg.OrderID = orderID

	report := e.pollUntilTerminal(ctx, step.Pair, orderID)
	leg.FilledSize = report.FilledSize
	leg.AvgPrice = report.AvgPrice
	leg.ResolvedAt = time.Now()
	leg.Outcome = resolveOutcome(report, size, e.cfg.DustThreshold)

	if e.legLatency != nil {
		e.legLatency.Record(ctx, leg.ResolvedAt.Sub(start).Seconds())
	}
	return leg
}

// priceLeg computes the order side, size, and slippage-adjusted price for a
// step, rounded to the configured quantity/price steps. input is denominated
// in the step's input asset; converting it to an order quantity against a
// price is a unit conversion, not same-asset arithmetic, so it is unwrapped
// to a plain decimal here.
func (e *Executor) priceLeg(step arbitragedomain.PathStep, input money.Amount, ticker exchangeapp.Ticker) (exchangeapp.OrderSide, decimal.Decimal, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	amount := input.Decimal()
	if step.Action == arbitragedomain.Buy {
		price := roundToStep(ticker.Ask.Mul(one.Add(e.cfg.SlippageTolerance)), e.cfg.PriceStep)
		size := roundToStep(amount.Div(price), e.cfg.QuantityStep)
		return exchangeapp.Buy, size, price
	}
	price := roundToStep(ticker.Bid.Mul(one.Sub(e.cfg.SlippageTolerance)), e.cfg.PriceStep)
	size := roundToStep(amount, e.cfg.QuantityStep)
	return exchangeapp.Sell, size, price
}

// pollUntilTerminal polls order status at PollInterval up to cfg.OrderTimeout,
// cancelling and returning the last observed report if the timeout elapses
// first.
func (e *Executor) pollUntilTerminal(ctx context.Context, pair marketdomain.Pair, orderID string) exchangeapp.OrderReport {
	deadline := time.Now().Add(e.cfg.OrderTimeout)
	var last exchangeapp.OrderReport

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if report, err := e.gateway.GetOrderStatus(ctx, pair, orderID); err == nil {
			last = report
			if report.Status.Terminal() {
				return last
			}
		}
		if time.Now().After(deadline) {
			if err := e.gateway.CancelOrder(ctx, pair, orderID); err != nil {
				e.log.Warn(ctx, "order cancel after timeout failed", "order_id", orderID, "error", err.Error())
			}
			if final, err := e.gateway.GetOrderStatus(ctx, pair, orderID); err == nil {
				last = final
			}
			return last
		}
		select {
		case <-ctx.Done():
			return last
		case <-ticker.C:
		}
	}
}

// resolveOutcome classifies a leg's terminal report against the size
// actually requested.
func resolveOutcome(report exchangeapp.OrderReport, requestedSize, dustThreshold decimal.Decimal) domain.LegOutcome {
	if report.Status == exchangeapp.OrderFilled {
		return domain.LegFilled
	}
	if report.FilledSize.IsZero() {
		return domain.LegUnfilled
	}
	remaining := requestedSize.Sub(report.FilledSize)
	if remaining.LessThanOrEqual(dustThreshold) {
		return domain.LegPartialDust
	}
	return domain.LegTimeout
}

func roundToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}
