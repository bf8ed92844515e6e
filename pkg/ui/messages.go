// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"time"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/shopspring/decimal"
)

// Message types the Reporter sends into the running Bubble Tea program.

// OpportunityMsg is sent when the evaluator emits an opportunity.
type OpportunityMsg struct {
	Opportunity arbitragedomain.Opportunity
}

// RiskDecisionMsg is sent with the risk gate's verdict on an opportunity.
type RiskDecisionMsg struct {
	Opportunity arbitragedomain.Opportunity
	Decision    riskdomain.Decision
}

// ExecutionMsg is sent when an execution attempt completes.
type ExecutionMsg struct {
	Result executiondomain.ExecutionResult
}

// ConnectionStatusMsg is sent when the exchange gateway's connectivity changes.
type ConnectionStatusMsg struct {
	Connected bool
	Latency   time.Duration
}

// PortfolioMsg is sent with the latest portfolio snapshot.
type PortfolioMsg struct {
	TotalUSDT decimal.Decimal
	Age       time.Duration
}

// RiskStateMsg is sent with the risk gate's current level and daily counters.
type RiskStateMsg struct {
	Level            riskdomain.Level
	TradesToday      int
	RealizedPnLToday decimal.Decimal
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically to drive animation.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartupMsg reports progress connecting to the exchange during the startup phase.
type StartupMsg struct {
	Status  string // "connecting", "connected", "failed"
	Message string
}
