// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZefanHu/triangular-arbitrage-bot/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Connecting to the exchange
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	status        *components.StatusComponent
	stats         *components.StatsComponent
	opportunities *components.OpportunitiesComponent

	phase        Phase
	welcomeStart time.Time

	ready      bool
	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry
	logs       []string

	startupStatus string // "pending", "connecting", "connected", "failed"
	startupTime   time.Time
	connectedOnce bool

	counters components.Stats
	keys     KeyMap
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		status:        components.NewStatusComponent(),
		stats:         components.NewStatsComponent(),
		opportunities: components.NewOpportunitiesComponent(50),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		logs:          make([]string, 0, 5),
		errors:        make([]ErrorEntry, 0, 3),
		startupStatus: "pending",
		startupTime:   now,
		keys:          DefaultKeyMap(),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case msg.String() == "up" || msg.String() == "k":
			m.opportunities.ScrollUp()
			return m, nil
		case msg.String() == "down" || msg.String() == "j":
			m.opportunities.ScrollDown()
			return m, nil
		case msg.String() == "e":
			m.errors = make([]ErrorEntry, 0, 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
		}
		return m, tickCmd()

	case OpportunityMsg:
		opp := msg.Opportunity
		m.opportunities.Add(components.OpportunityRow{
			Timestamp:  opp.EvaluatedAt.Format("15:04:05.000"),
			Route:      opp.Path.Route,
			ProfitRate: opp.ProfitRate,
			MaxStake:   opp.MaxStake,
		})
		m.counters.Opportunities++
		m.lastUpdate = time.Now()

	case RiskDecisionMsg:
		reason := ""
		if !msg.Decision.Approved {
			reason = string(msg.Decision.Reason)
			m.counters.Rejections++
		} else {
			m.counters.Approvals++
		}
		m.opportunities.ApplyDecision(msg.Opportunity.Path.Route, msg.Decision.Approved, reason)
		m.lastUpdate = time.Now()

	case ExecutionMsg:
		legs := make([]components.LegRow, 0, len(msg.Result.Legs))
		for _, leg := range msg.Result.Legs {
			legs = append(legs, components.LegRow{
				Pair:     leg.Pair.ID(),
				Outcome:  leg.Outcome.String(),
				Filled:   leg.FilledSize,
				AvgPrice: leg.AvgPrice,
			})
		}
		m.opportunities.ApplyExecution(msg.Result.Route, msg.Result.Success, msg.Result.RealizedPnL, legs)
		m.counters.Executions++
		if msg.Result.Success {
			m.counters.Successes++
		}
		m.stats.Update(m.counters)
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.status.UpdateConnection(msg.Connected, msg.Latency)
		if msg.Connected {
			m.startupStatus = "connected"
			m.connectedOnce = true
		} else if m.startupStatus != "connected" {
			m.startupStatus = "connecting"
		}
		m.lastUpdate = time.Now()

	case PortfolioMsg:
		m.status.UpdatePortfolio(msg.TotalUSDT, msg.Age)
		m.lastUpdate = time.Now()

	case RiskStateMsg:
		m.status.UpdateRisk(msg.Level.String(), msg.TradesToday, msg.RealizedPnLToday)
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		m.counters.Errors++

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		m.startupStatus = msg.Status
		if msg.Status == "connected" {
			m.connectedOnce = true
		}
	}

	return m, nil
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.connectedOnce {
			return m.renderStartupScreen()
		}
		m.phase = PhaseDashboard
		fallthrough
	case PhaseDashboard:
	}

	var b strings.Builder

	title := TitleStyle.Render(" Triangular Arbitrage Engine ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(BoxStyle.Width(m.dashWidth()).Render(m.status.View()))
	b.WriteString("\n")
	b.WriteString(BoxStyle.Width(m.dashWidth()).Render(m.stats.View()))
	b.WriteString("\n")
	b.WriteString(BoxStyle.Width(m.dashWidth()).Render(m.opportunities.View()))
	b.WriteString("\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	helpText := "q: quit • c: clear • p: pause • ↑↓: scroll • e: clear errors"
	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(helpText))

	return b.String()
}

func (m Model) dashWidth() int {
	if m.width > 4 {
		return m.width - 4
	}
	return 76
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	greenStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n")
	sb.WriteString(titleStyle.Render("          T R I A N G U L A R   A R B I T R A G E"))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("                    single-exchange cycle engine"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("                  watching three legs for one edge"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Triangular Arbitrage Engine"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Connecting to exchange..."))
	sb.WriteString("\n\n")

	var icon, statusText string
	var style lipgloss.Style
	switch m.startupStatus {
	case "connected":
		icon, statusText, style = "✓", "Connected", successStyle
	case "failed":
		icon, statusText, style = "✗", "Failed", failedStyle
	case "connecting":
		spinners := []string{"◐", "◓", "◑", "◒"}
		idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
		icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
	default:
		icon, statusText, style = "○", "Pending", mutedStyle
	}
	sb.WriteString(fmt.Sprintf("  %s %s\n", style.Render(icon), style.Render(statusText)))

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")
	return sb.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
