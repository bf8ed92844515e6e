// Package domain holds the Executor's value objects: per-leg outcomes and
// the overall chain result the Risk Gate records against.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
)

// LegOutcome is the terminal state a leg reached.
type LegOutcome int

const (
	LegFilled LegOutcome = iota
	LegPartialDust         // partially filled, remainder below the dust threshold: treated as success
	LegTimeout             // partially filled at timeout, remainder too large: aborts the chain
	LegUnfilled            // cancelled with zero fill: aborts the chain
	LegNotAttempted        // chain already aborted on an earlier leg; this one was never placed
)

func (o LegOutcome) String() string {
	switch o {
	case LegFilled:
		return "filled"
	case LegPartialDust:
		return "partial_dust"
	case LegTimeout:
		return "timeout"
	case LegUnfilled:
		return "unfilled"
	case LegNotAttempted:
		return "not_attempted"
	default:
		return "unknown"
	}
}

// Succeeded reports whether this outcome lets the chain proceed to the next
// leg (LegFilled and LegPartialDust); the others abort or record an abort.
func (o LegOutcome) Succeeded() bool {
	return o == LegFilled || o == LegPartialDust
}

// LegResult records one leg's actual execution against the exchange.
type LegResult struct {
	Pair        marketdomain.Pair
	OrderID     string
	InputAmount decimal.Decimal // amount of the leg's input asset committed
	FilledSize  decimal.Decimal // size actually filled, in the pair's base asset
	AvgPrice    decimal.Decimal
	Outcome     LegOutcome
	PlacedAt    time.Time
	ResolvedAt  time.Time
}

// ExecutionResult is the Executor's report for one opportunity attempt.
type ExecutionResult struct {
	Route       string
	Stake       decimal.Decimal // in the path's start asset
	Legs        []LegResult
	Success     bool
	RealizedPnL decimal.Decimal // in the start asset; may be negative
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration reports how long the attempt took end to end.
func (r ExecutionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
