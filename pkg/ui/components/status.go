// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// StatusComponent renders exchange connectivity, portfolio value, and the
// risk gate's current level.
type StatusComponent struct {
	connected     bool
	latency       time.Duration
	lastUpdate    time.Time
	portfolioUSDT decimal.Decimal
	portfolioAge  time.Duration
	riskLevel     string
	tradesToday   int
	realizedPnL   decimal.Decimal
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{riskLevel: "low"}
}

// UpdateConnection records the exchange gateway's connectivity.
func (s *StatusComponent) UpdateConnection(connected bool, latency time.Duration) {
	s.connected = connected
	s.latency = latency
	s.lastUpdate = time.Now()
}

// UpdatePortfolio records the latest portfolio snapshot.
func (s *StatusComponent) UpdatePortfolio(totalUSDT decimal.Decimal, age time.Duration) {
	s.portfolioUSDT = totalUSDT
	s.portfolioAge = age
}

// UpdateRisk records the risk gate's current level and daily counters.
func (s *StatusComponent) UpdateRisk(level string, tradesToday int, realizedPnL decimal.Decimal) {
	s.riskLevel = level
	s.tradesToday = tradesToday
	s.realizedPnL = realizedPnL
}

// View renders the status component.
func (s *StatusComponent) View() string {
	connStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	connText := "● connected"
	if !s.connected {
		connStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
		connText = "○ disconnected"
	}
	if s.connected && s.latency > 0 {
		connText += fmt.Sprintf(" (%s)", s.latency.Round(time.Millisecond))
	}

	riskStyle := riskLevelStyle(s.riskLevel)

	var b string
	b += fmt.Sprintf("exchange: %s\n", connStyle.Render(connText))
	b += fmt.Sprintf("portfolio: $%s  (synced %s ago)\n", s.portfolioUSDT.StringFixed(2), s.portfolioAge.Round(time.Second))
	b += fmt.Sprintf("risk: %s  │  trades today: %d  │  pnl today: %s\n",
		riskStyle.Render(s.riskLevel), s.tradesToday, s.realizedPnL.StringFixed(4))
	return b
}

func riskLevelStyle(level string) lipgloss.Style {
	switch level {
	case "critical":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	case "high":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	case "medium":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	}
}
