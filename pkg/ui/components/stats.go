// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds run-level counters for display.
type Stats struct {
	Ticks         int64
	Opportunities int64
	Approvals     int64
	Rejections    int64
	Executions    int64
	Successes     int64
	Errors        int64
}

// StatsComponent renders run statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	successRate := float64(0)
	if s.stats.Executions > 0 {
		successRate = float64(s.stats.Successes) / float64(s.stats.Executions) * 100
	}

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Ticks: %s  │  Opportunities: %s  │  Approved: %s  │  Rejected: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Ticks)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Approvals)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rejections)),
		) +
		fmt.Sprintf("Executions: %s  │  Success rate: %s  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Executions)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", successRate)),
			errorsDisplay,
		)
}
