// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// LegRow represents one completed leg for display inside an execution.
type LegRow struct {
	Pair     string
	Outcome  string
	Filled   decimal.Decimal
	AvgPrice decimal.Decimal
}

// OpportunityRow represents one evaluator tick's worth of a path, folded in
// with whatever the risk gate and executor did about it.
type OpportunityRow struct {
	Timestamp    string
	Route        string
	ProfitRate   decimal.Decimal
	MaxStake     decimal.Decimal
	Decided      bool
	Approved     bool
	RejectReason string
	Executed     bool
	Success      bool
	RealizedPnL  decimal.Decimal
	Legs         []LegRow
}

// OpportunitiesComponent renders the scrolling opportunity/execution feed.
type OpportunitiesComponent struct {
	rows       []OpportunityRow
	maxRows    int
	offset     int
	visibleMax int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:       make([]OpportunityRow, 0),
		maxRows:    maxRows,
		visibleMax: 5,
	}
}

// Add adds a new opportunity row, most recent first.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	o.offset = 0
}

// Clear clears the feed.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp scrolls the list up.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown scrolls the list down.
func (o *OpportunitiesComponent) ScrollDown() {
	maxOffset := len(o.rows) - o.visibleMax
	if maxOffset < 0 {
		maxOffset = 0
	}
	if o.offset < maxOffset {
		o.offset++
	}
}

// Count returns the total number of rows held.
func (o *OpportunitiesComponent) Count() int {
	return len(o.rows)
}

// ApplyDecision records the risk gate's verdict against the most recent
// undecided row for route.
func (o *OpportunitiesComponent) ApplyDecision(route string, approved bool, reason string) {
	for i := range o.rows {
		if o.rows[i].Route == route && !o.rows[i].Decided {
			o.rows[i].Decided = true
			o.rows[i].Approved = approved
			o.rows[i].RejectReason = reason
			return
		}
	}
}

// ApplyExecution records a completed execution against the most recent
// approved-but-unexecuted row for route.
func (o *OpportunitiesComponent) ApplyExecution(route string, success bool, realizedPnL decimal.Decimal, legs []LegRow) {
	for i := range o.rows {
		if o.rows[i].Route == route && o.rows[i].Approved && !o.rows[i].Executed {
			o.rows[i].Executed = true
			o.rows[i].Success = success
			o.rows[i].RealizedPnL = realizedPnL
			o.rows[i].Legs = legs
			return
		}
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	rejectStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	scrollHint := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	var result string
	result = headerStyle.Render("OPPORTUNITIES")
	if len(o.rows) > 0 {
		result += mutedStyle.Render(fmt.Sprintf(" (%d total, ↑↓ scroll)", len(o.rows)))
	}
	result += "\n\n"

	if len(o.rows) == 0 {
		result += mutedStyle.Render("  No opportunities detected yet.\n")
		result += mutedStyle.Render("  Scanning order books...\n")
		return result
	}

	if o.offset > 0 {
		result += scrollHint.Render(fmt.Sprintf("  ▲ %d above\n", o.offset))
	}

	end := o.offset + o.visibleMax
	if end > len(o.rows) {
		end = len(o.rows)
	}

	for i := o.offset; i < end; i++ {
		row := o.rows[i]
		icon := "●"
		style := profitStyle
		if row.Decided && !row.Approved {
			icon = "○"
			style = mutedStyle
		}

		result += fmt.Sprintf("  %s [%s] %s  profit=%s  max_stake=%s\n",
			style.Render(icon), row.Timestamp, row.Route,
			style.Render(row.ProfitRate.StringFixed(4)), row.MaxStake.StringFixed(2))

		switch {
		case !row.Decided:
			result += dimStyle.Render("    pending risk decision...\n")
		case !row.Approved:
			result += rejectStyle.Render(fmt.Sprintf("    rejected: %s\n", row.RejectReason))
		case !row.Executed:
			result += dimStyle.Render("    approved, awaiting execution\n")
		default:
			pnlStyle := profitStyle
			if row.RealizedPnL.IsNegative() {
				pnlStyle = rejectStyle
			}
			result += fmt.Sprintf("    executed success=%t  pnl=%s\n", row.Success, pnlStyle.Render(row.RealizedPnL.StringFixed(6)))
			for _, leg := range row.Legs {
				result += dimStyle.Render(fmt.Sprintf("      %s: %s @ %s (%s)\n",
					leg.Pair, leg.Filled.StringFixed(6), leg.AvgPrice.StringFixed(4), leg.Outcome))
			}
		}

		if i < end-1 {
			result += dimStyle.Render("    ─────────────────────────────────\n")
		}
	}

	if end < len(o.rows) {
		result += scrollHint.Render(fmt.Sprintf("\n  ▼ %d more below\n", len(o.rows)-end))
	}

	return result
}
