// Package domain holds the arbitrage evaluator's value objects: configured
// paths and the opportunities they evaluate to. Every type here is
// immutable; the evaluator in business/arbitrage/app is a pure function
// over these plus the Order-Book Cache.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// Action is the side of the trade a leg performs.
type Action int

const (
	Buy Action = iota
	Sell
)

func (a Action) String() string {
	if a == Buy {
		return "buy"
	}
	return "sell"
}

// PathStep is a single leg: a pair and the action taken on it.
type PathStep struct {
	Pair   marketdomain.Pair
	Action Action
}

// InputAsset returns the asset this step consumes.
func (s PathStep) InputAsset() money.Asset {
	if s.Action == Buy {
		return s.Pair.Quote()
	}
	return s.Pair.Base()
}

// OutputAsset returns the asset this step produces.
func (s PathStep) OutputAsset() money.Asset {
	if s.Action == Buy {
		return s.Pair.Base()
	}
	return s.Pair.Quote()
}

// Path is an ordered cycle of ≥3 steps whose end asset equals its start
// asset. Route is a human-readable label (e.g. "USDT->BTC->USDC->USDT"),
// carried through from configuration for logging and reporting.
type Path struct {
	Route string
	Steps []PathStep
}

// StartAsset returns the asset the cycle begins and ends in.
func (p Path) StartAsset() money.Asset {
	return p.Steps[0].InputAsset()
}

// Validate checks the path's structural invariants: at least three steps,
// and a closed cycle where each step's output feeds the next step's input.
func (p Path) Validate() error {
	if len(p.Steps) < 3 {
		return fmt.Errorf("path %q has fewer than 3 steps", p.Route)
	}
	for i := 0; i < len(p.Steps)-1; i++ {
		if p.Steps[i].OutputAsset() != p.Steps[i+1].InputAsset() {
			return fmt.Errorf("path %q: step %d output %s does not feed step %d input %s",
				p.Route, i, p.Steps[i].OutputAsset(), i+1, p.Steps[i+1].InputAsset())
		}
	}
	last := p.Steps[len(p.Steps)-1]
	if last.OutputAsset() != p.StartAsset() {
		return fmt.Errorf("path %q does not close its cycle: ends in %s, starts in %s",
			p.Route, last.OutputAsset(), p.StartAsset())
	}
	return nil
}

// Opportunity is a path evaluated against current depth and found
// profitable. Ephemeral: expires after a configured max age.
type Opportunity struct {
	Path       Path
	ProfitRate decimal.Decimal // net of fees, e.g. 0.00565 == +0.565%
	MaxStake   decimal.Decimal // in Path.StartAsset() terms
	EvaluatedAt time.Time
}

// Expired reports whether this opportunity is older than maxAge relative
// to now.
func (o Opportunity) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(o.EvaluatedAt) > maxAge
}
