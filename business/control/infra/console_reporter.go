// Package infra contains infrastructure adapters for the control context:
// the reporter implementations that present controller decisions without
// participating in them.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/domain"
	executiondomain "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/domain"
	portfoliodomain "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	riskdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/domain"
)

// ConsoleReporter implements app.Reporter for non-interactive runs
// (-mode=monitor), plain sectioned fmt.Fprintln output.
type ConsoleReporter struct {
	out io.Writer

	executions int
	approvals  int
	rejections int
}

// NewConsoleReporter builds a ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// Start implements app.Reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Triangular Arbitrage Engine Started")
	fmt.Fprintln(r.out, "====================================")
	return nil
}

// ReportOpportunity implements app.Reporter.
func (r *ConsoleReporter) ReportOpportunity(opp arbitragedomain.Opportunity) {
	fmt.Fprintf(r.out, "[%s] opportunity  route=%s  profit_rate=%s  max_stake=%s\n",
		opp.EvaluatedAt.Format("15:04:05.000"), opp.Path.Route, opp.ProfitRate.StringFixed(5), opp.MaxStake.StringFixed(4))
}

// ReportRiskDecision implements app.Reporter.
func (r *ConsoleReporter) ReportRiskDecision(opp arbitragedomain.Opportunity, decision riskdomain.Decision) {
	if decision.Approved {
		r.approvals++
		fmt.Fprintf(r.out, "  risk: approved  route=%s  stake=%s\n", opp.Path.Route, decision.Stake.StringFixed(4))
		return
	}
	r.rejections++
	fmt.Fprintf(r.out, "  risk: rejected  route=%s  reason=%s\n", opp.Path.Route, decision.Reason)
}

// ReportExecution implements app.Reporter.
func (r *ConsoleReporter) ReportExecution(result executiondomain.ExecutionResult) {
	r.executions++
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "EXECUTION  route=%s  success=%t  duration=%s\n", result.Route, result.Success, result.Duration())
	for i, leg := range result.Legs {
		fmt.Fprintf(r.out, "  leg %d: %s  filled=%s @ %s  outcome=%s\n",
			i+1, leg.Pair.ID(), leg.FilledSize.StringFixed(6), leg.AvgPrice.StringFixed(4), leg.Outcome)
	}
	fmt.Fprintf(r.out, "  realized_pnl=%s\n", result.RealizedPnL.StringFixed(6))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
}

// UpdateConnectionStatus implements app.Reporter.
func (r *ConsoleReporter) UpdateConnectionStatus(connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	fmt.Fprintf(r.out, "[%s] exchange: %s\n", time.Now().Format("15:04:05"), status)
}

// UpdatePortfolio implements app.Reporter.
func (r *ConsoleReporter) UpdatePortfolio(p portfoliodomain.Portfolio, totalUSDT decimal.Decimal) {
	fmt.Fprintf(r.out, "portfolio: total=%s USDT  synced=%s ago\n", totalUSDT.StringFixed(2), p.Age(time.Now()))
}

// UpdateRiskState implements app.Reporter.
func (r *ConsoleReporter) UpdateRiskState(level riskdomain.Level, tradesToday int, realizedPnLToday decimal.Decimal) {
	fmt.Fprintf(r.out, "risk level: %s\n", level)
}

// Stop implements app.Reporter, printing a run summary.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "====================================")
	fmt.Fprintf(r.out, "Summary: %d executions, %d approvals, %d rejections\n", r.executions, r.approvals, r.rejections)
	fmt.Fprintln(r.out, "Triangular Arbitrage Engine Stopped")
	return nil
}
