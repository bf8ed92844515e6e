package infra

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/pkg/ui"
)

// TUIReporter implements app.Reporter on top of the Bubble Tea dashboard
// (-mode=auto), forwarding every controller decision as a ui message.
type TUIReporter struct{}

// NewTUIReporter builds a TUIReporter. The Bubble Tea program itself is
// started separately by cmd/triarb, since it owns the terminal.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start implements app.Reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportOpportunity implements app.Reporter.
func (r *TUIReporter) ReportOpportunity(opp arbitragedomain.Opportunity) {
	ui.Send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportRiskDecision implements app.Reporter.
func (r *TUIReporter) ReportRiskDecision(opp arbitragedomain.Opportunity, decision riskdomain.Decision) {
	ui.Send(ui.RiskDecisionMsg{Opportunity: opp, Decision: decision})
}

// ReportExecution implements app.Reporter.
func (r *TUIReporter) ReportExecution(result executiondomain.ExecutionResult) {
	ui.Send(ui.ExecutionMsg{Result: result})
}

// UpdateConnectionStatus implements app.Reporter.
func (r *TUIReporter) UpdateConnectionStatus(connected bool, latency time.Duration) {
	ui.Send(ui.ConnectionStatusMsg{Connected: connected, Latency: latency})
}

// UpdatePortfolio implements app.Reporter.
func (r *TUIReporter) UpdatePortfolio(p portfoliodomain.Portfolio, totalUSDT decimal.Decimal) {
	ui.Send(ui.PortfolioMsg{TotalUSDT: totalUSDT, Age: p.Age(time.Now())})
}

// UpdateRiskState implements app.Reporter.
func (r *TUIReporter) UpdateRiskState(level riskdomain.Level, tradesToday int, realizedPnLToday decimal.Decimal) {
	ui.Send(ui.RiskStateMsg{Level: level, TradesToday: tradesToday, RealizedPnLToday: realizedPnLToday})
}

// Stop implements app.Reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
