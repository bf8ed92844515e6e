// Package app implements the Controller: the scan/act loop that composes
// the evaluator, risk gate, and executor into one cooperative task.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
)

// Reporter separates the controller's pure scan/act decisions from their
// presentation, mirroring the existing Reporter port that keeps detection
// logic independent of its display.
type Reporter interface {
	// Start initializes the reporter for a new run.
	Start(ctx context.Context) error

	// ReportOpportunity surfaces an opportunity the evaluator emitted this
	// tick, before it reaches the risk gate.
	ReportOpportunity(opp arbitragedomain.Opportunity)

	// ReportRiskDecision surfaces the risk gate's verdict on an opportunity.
	ReportRiskDecision(opp arbitragedomain.Opportunity, decision riskdomain.Decision)

	// ReportExecution surfaces a completed execution attempt.
	ReportExecution(result executiondomain.ExecutionResult)

	// UpdateConnectionStatus surfaces the exchange gateway's connectivity.
	UpdateConnectionStatus(connected bool, latency time.Duration)

	// UpdatePortfolio surfaces the latest portfolio snapshot and its
	// USDT-equivalent total.
	UpdatePortfolio(p portfoliodomain.Portfolio, totalUSDT decimal.Decimal)

	// UpdateRiskState surfaces the risk gate's current loss-exposure level.
	UpdateRiskState(level riskdomain.Level, tradesToday int, realizedPnLToday decimal.Decimal)

	// Stop gracefully shuts down the reporter, printing a summary.
	Stop() error
}

// State is the controller's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
